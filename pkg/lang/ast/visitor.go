package ast

// Children returns the direct sub-expressions of n in evaluation order.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch n := n.(type) {
	case *BinaryOp:
		add(n.Left, n.Right)
	case *Produit:
		add(n.Assiette, n.Taux)
	case *Bareme:
		add(n.Assiette)
		for _, t := range n.Tranches {
			add(t.Taux, t.Plafond)
		}
	case *UnitConversion:
		add(n.Value)
	case *All:
		add(n.Items...)
	case *Any:
		add(n.Items...)
	case *Variations:
		for _, b := range n.Branches {
			add(b.Condition, b.Consequence)
		}
		add(n.Default)
	case *ApplicableSi:
		add(n.Condition, n.Value)
	case *Plafond:
		add(n.Bound, n.Value)
	case *Plancher:
		add(n.Bound, n.Value)
	case *Somme:
		add(n.Terms...)
	case *ParDefaut:
		add(n.Fallback, n.Value)
	case *UniteAnnotation:
		add(n.Value)
	case *Record:
		for _, e := range n.Entries {
			add(e.Value)
		}
	case *List:
		add(n.Items...)
	}
	return out
}

// Inspect traverses the tree rooted at n in depth-first order. It calls f for
// each node; if f returns false, the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// References returns the names referenced anywhere under n, in first-seen order.
func References(n Node) []string {
	seen := make(map[string]bool)
	var names []string
	Inspect(n, func(node Node) bool {
		if ref, ok := node.(*Reference); ok && !seen[ref.Name] {
			seen[ref.Name] = true
			names = append(names, ref.Name)
		}
		return true
	})
	return names
}
