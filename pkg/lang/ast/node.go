package ast

// NodeID identifies a node for the lifetime of a compilation.
// Side tables (inferred types, rewrites) are keyed by NodeID rather than by pointer.
type NodeID int

// NodeKind is the variant tag of an expression node.
type NodeKind string

const (
	KindConstant        NodeKind = "constant"
	KindUndefined       NodeKind = "undefined"
	KindReference       NodeKind = "reference"
	KindBinaryOp        NodeKind = "operation"
	KindProduit         NodeKind = "produit"
	KindBareme          NodeKind = "barème"
	KindUnitConversion  NodeKind = "unit conversion"
	KindAll             NodeKind = "toutes ces conditions"
	KindAny             NodeKind = "une de ces conditions"
	KindVariations      NodeKind = "variations"
	KindApplicableSi    NodeKind = "applicable si"
	KindPlafond         NodeKind = "plafond"
	KindPlancher        NodeKind = "plancher"
	KindSomme           NodeKind = "somme"
	KindParDefaut       NodeKind = "par défaut"
	KindUniteAnnotation NodeKind = "unité"
	KindPossibilites    NodeKind = "possibilités"
	KindRecord          NodeKind = "record"
	KindList            NodeKind = "list"
)

// Node is implemented by every expression node.
type Node interface {
	ID() NodeID
	Pos() Span
	Kind() NodeKind
}

// Base carries the identity and source span shared by all nodes.
type Base struct {
	NodeID NodeID
	Range  Span
}

// ID returns the node's stable identifier.
func (b Base) ID() NodeID { return b.NodeID }

// Pos returns the node's source span.
func (b Base) Pos() Span { return b.Range }

// IDs allocates node identifiers. One allocator is shared by the parser and
// the linker of a program so that rewritten nodes never collide with parsed ones.
type IDs struct {
	next NodeID
}

// Next returns a fresh identifier.
func (g *IDs) Next() NodeID {
	g.next++
	return g.next
}

// Base returns a Base with a fresh identifier and the given span.
func (g *IDs) Base(span Span) Base {
	return Base{NodeID: g.Next(), Range: span}
}

// Count returns the number of identifiers handed out so far.
func (g *IDs) Count() int {
	return int(g.next)
}

// Fork returns an allocator whose identifiers follow those handed out by g
// so far. g itself is only read, so several forks may be taken concurrently
// as long as g no longer allocates.
func (g *IDs) Fork() *IDs {
	return &IDs{next: g.next}
}
