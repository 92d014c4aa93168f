package compiler

import (
	"fmt"
	"math"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
	"regles-hq/calcul/pkg/lang/linker"
)

// compiler lowers the nodes of one rule.
type compiler struct {
	linked   *linker.Linked
	runtime  *Runtime
	rule     *ast.Rule
	detached bool // lowering an override, which has no place in the sources
}

func constant(v Value) Thunk {
	return func(Resolver) (Value, error) { return v, nil }
}

// lower turns n into a closure over the closures of its children.
func (c *compiler) lower(n ast.Node) Thunk {
	switch n := n.(type) {
	case *ast.Constant:
		return constant(n.Value)

	case *ast.Undefined, *ast.Possibilites:
		return constant(nil)

	case *ast.Reference:
		name := c.linked.Target(n)
		return func(r Resolver) (Value, error) {
			return r(name)
		}

	case *ast.BinaryOp:
		return c.lowerBinary(n)

	case *ast.Produit:
		return c.lowerBinary(&ast.BinaryOp{Base: n.Base, Op: ast.OpMul, Left: n.Assiette, Right: n.Taux})

	case *ast.UnitConversion:
		return c.lowerConversion(n)

	case *ast.Bareme:
		return c.lowerBareme(n)

	case *ast.All:
		return c.lowerConditions(n.Items, true)

	case *ast.Any:
		return c.lowerConditions(n.Items, false)

	case *ast.Variations:
		return c.lowerVariations(n)

	case *ast.ApplicableSi:
		return c.lowerApplicableSi(n)

	case *ast.Plafond:
		return c.lowerBound(n.Bound, n.Value, math.Min)

	case *ast.Plancher:
		return c.lowerBound(n.Bound, n.Value, math.Max)

	case *ast.ParDefaut:
		value, fallback := c.lower(n.Value), c.lower(n.Fallback)
		return func(r Resolver) (Value, error) {
			v, err := value(r)
			if err != nil || v != nil {
				return v, err
			}
			return fallback(r)
		}

	case *ast.Somme:
		return c.lowerSomme(n)

	case *ast.UniteAnnotation:
		return c.lower(n.Value)

	case *ast.Record:
		return c.lowerRecord(n)

	case *ast.List:
		items := c.lowerAll(n.Items)
		return func(r Resolver) (Value, error) {
			values := make([]Value, len(items))
			for i, item := range items {
				v, err := item(r)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			return values, nil
		}
	}

	err := c.evalError(n, "cannot evaluate %s node", n.Kind())
	return func(Resolver) (Value, error) { return nil, err }
}

func (c *compiler) lowerAll(nodes []ast.Node) []Thunk {
	thunks := make([]Thunk, len(nodes))
	for i, n := range nodes {
		thunks[i] = c.lower(n)
	}
	return thunks
}

func (c *compiler) lowerBinary(n *ast.BinaryOp) Thunk {
	left, right := c.lower(n.Left), c.lower(n.Right)

	return func(r Resolver) (Value, error) {
		a, err := left(r)
		if err != nil {
			return nil, err
		}
		b, err := right(r)
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}

		if ast.IsComparison(n.Op) {
			return c.compare(n, a, b)
		}

		x, err := c.number(n.Left, a, "operator "+n.Op)
		if err != nil {
			return nil, err
		}
		y, err := c.number(n.Right, b, "operator "+n.Op)
		if err != nil {
			return nil, err
		}

		switch n.Op {
		case ast.OpAdd:
			return x + y, nil
		case ast.OpSub:
			return x - y, nil
		case ast.OpMul:
			return x * y, nil
		default:
			if y == 0 {
				return nil, c.evalError(n.Right, "division by zero")
			}
			return x / y, nil
		}
	}
}

func (c *compiler) compare(n *ast.BinaryOp, a, b Value) (Value, error) {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch n.Op {
			case ast.OpEq:
				return x == y, nil
			case ast.OpLt:
				return x < y, nil
			case ast.OpGt:
				return x > y, nil
			case ast.OpLte:
				return x <= y, nil
			default:
				return x >= y, nil
			}
		}
	case bool:
		if y, ok := b.(bool); ok && n.Op == ast.OpEq {
			return x == y, nil
		}
	case string:
		if y, ok := b.(string); ok && n.Op == ast.OpEq {
			return x == y, nil
		}
	}
	return nil, c.evalError(n, "cannot compare %s with %s using %s", describe(a), describe(b), n.Op)
}

func (c *compiler) lowerConversion(n *ast.UnitConversion) Thunk {
	convert := c.runtime.Convert()
	value := c.lower(n.Value)
	factor := n.Factor

	return func(r Resolver) (Value, error) {
		v, err := value(r)
		if err != nil || v == nil {
			return nil, err
		}
		x, err := c.number(n.Value, v, "conversion to "+n.To)
		if err != nil {
			return nil, err
		}
		return convert(x, factor), nil
	}
}

func (c *compiler) lowerBareme(n *ast.Bareme) Thunk {
	fold := c.runtime.Bareme()
	assiette := c.lower(n.Assiette)

	type tranche struct {
		taux, plafond         Thunk
		tauxNode, plafondNode ast.Node
	}
	tranches := make([]tranche, len(n.Tranches))
	for i, t := range n.Tranches {
		tranches[i] = tranche{taux: c.lower(t.Taux), tauxNode: t.Taux}
		if t.Plafond != nil {
			tranches[i].plafond = c.lower(t.Plafond)
			tranches[i].plafondNode = t.Plafond
		}
	}

	return func(r Resolver) (Value, error) {
		v, err := assiette(r)
		if err != nil || v == nil {
			return nil, err
		}
		base, err := c.number(n.Assiette, v, "barème assiette")
		if err != nil {
			return nil, err
		}

		brackets := make([]Bracket, len(tranches))
		for i, t := range tranches {
			v, err := t.taux(r)
			if err != nil || v == nil {
				return nil, err
			}
			rate, err := c.number(t.tauxNode, v, "barème taux")
			if err != nil {
				return nil, err
			}

			ceiling := math.Inf(1)
			if t.plafond != nil {
				v, err := t.plafond(r)
				if err != nil || v == nil {
					return nil, err
				}
				if ceiling, err = c.number(t.plafondNode, v, "barème plafond"); err != nil {
					return nil, err
				}
			}
			brackets[i] = Bracket{Rate: rate, Ceiling: ceiling}
		}
		return fold(base, brackets), nil
	}
}

// lowerConditions evaluates a conjunction (all) or disjunction with
// three-valued logic: a deciding value short-circuits, and an undefined
// operand makes an undecided result undefined.
func (c *compiler) lowerConditions(items []ast.Node, all bool) Thunk {
	thunks := c.lowerAll(items)

	return func(r Resolver) (Value, error) {
		unknown := false
		for i, item := range thunks {
			v, err := item(r)
			if err != nil {
				return nil, err
			}
			switch b := v.(type) {
			case nil:
				unknown = true
			case bool:
				if b != all {
					return b, nil
				}
			default:
				return nil, c.evalError(items[i], "expected a condition, got %s", describe(v))
			}
		}
		if unknown {
			return nil, nil
		}
		return all, nil
	}
}

func (c *compiler) lowerVariations(n *ast.Variations) Thunk {
	conditions := make([]Thunk, len(n.Branches))
	consequences := make([]Thunk, len(n.Branches))
	for i, b := range n.Branches {
		conditions[i] = c.lower(b.Condition)
		consequences[i] = c.lower(b.Consequence)
	}
	def := c.lower(n.Default)

	return func(r Resolver) (Value, error) {
		for i, cond := range conditions {
			ok, err := c.condition(n.Branches[i].Condition, cond, r)
			if err != nil {
				return nil, err
			}
			if ok {
				return consequences[i](r)
			}
		}
		return def(r)
	}
}

func (c *compiler) lowerApplicableSi(n *ast.ApplicableSi) Thunk {
	cond, value := c.lower(n.Condition), c.lower(n.Value)

	return func(r Resolver) (Value, error) {
		ok, err := c.condition(n.Condition, cond, r)
		if err != nil || !ok {
			return nil, err
		}
		return value(r)
	}
}

// condition evaluates a condition; undefined counts as not true.
func (c *compiler) condition(n ast.Node, thunk Thunk, r Resolver) (bool, error) {
	v, err := thunk(r)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, c.evalError(n, "expected a condition, got %s", describe(v))
}

// lowerBound clamps the value with pick (math.Min for plafond, math.Max for
// plancher). An undefined bound leaves the value unchanged.
func (c *compiler) lowerBound(bound, value ast.Node, pick func(x, y float64) float64) Thunk {
	boundThunk, valueThunk := c.lower(bound), c.lower(value)

	return func(r Resolver) (Value, error) {
		v, err := valueThunk(r)
		if err != nil || v == nil {
			return nil, err
		}
		b, err := boundThunk(r)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return v, nil
		}

		x, err := c.number(value, v, "bounded value")
		if err != nil {
			return nil, err
		}
		y, err := c.number(bound, b, "bound")
		if err != nil {
			return nil, err
		}
		return pick(x, y), nil
	}
}

func (c *compiler) lowerSomme(n *ast.Somme) Thunk {
	terms := c.lowerAll(n.Terms)

	return func(r Resolver) (Value, error) {
		var sum Value
		for i, term := range terms {
			v, err := term(r)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			x, err := c.number(n.Terms[i], v, "somme")
			if err != nil {
				return nil, err
			}
			if sum == nil {
				sum = x
			} else {
				sum = sum.(float64) + x
			}
		}
		return sum, nil
	}
}

func (c *compiler) lowerRecord(n *ast.Record) Thunk {
	keys := make([]string, len(n.Entries))
	values := make([]Thunk, len(n.Entries))
	for i, e := range n.Entries {
		keys[i] = e.Key
		values[i] = c.lower(e.Value)
	}

	return func(r Resolver) (Value, error) {
		record := make(map[string]Value, len(keys))
		for i, key := range keys {
			v, err := values[i](r)
			if err != nil {
				return nil, err
			}
			record[key] = v
		}
		return record, nil
	}
}

func (c *compiler) number(n ast.Node, v Value, what string) (float64, error) {
	x, ok := v.(float64)
	if !ok {
		return 0, c.evalError(n, "%s expects a number, got %s", what, describe(v))
	}
	return x, nil
}

// evalError builds an eval error located at n.
func (c *compiler) evalError(n ast.Node, format string, args ...any) error {
	err := langErrors.New(langErrors.ErrorTypeEval, format, args...)
	if c.rule == nil {
		return err
	}
	err.InRule(c.rule.Name)
	if c.detached {
		return err
	}

	file := c.rule.Location.File
	source := c.linked.Program.SourceOf(file)
	if source == "" {
		return err.At(c.rule.Location)
	}
	err.At(ast.LocationOf(file, source, n.Pos().Start))
	return langErrors.AddContextToError(err, source)
}

// describe names the kind of a runtime value for error messages.
func describe(v Value) string {
	switch v := v.(type) {
	case nil:
		return "undefined"
	case float64:
		return fmt.Sprintf("number %s", ast.FormatNumber(v))
	case bool:
		return "boolean"
	case string:
		return fmt.Sprintf("text %q", v)
	case []Value:
		return "list"
	case map[string]Value:
		return "record"
	default:
		return fmt.Sprintf("%T", v)
	}
}
