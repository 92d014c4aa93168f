package ast

// Constant is a literal number, boolean or text value.
// Value holds a float64, a bool or a string. Unit is only meaningful for numbers;
// the empty string means dimensionless.
type Constant struct {
	Base
	Value any
	Unit  string
}

func (*Constant) Kind() NodeKind { return KindConstant }

// IsNumber returns true if the constant holds a number.
func (c *Constant) IsNumber() bool {
	_, ok := c.Value.(float64)
	return ok
}

// Undefined is the value of a rule declared without a body.
type Undefined struct {
	Base
}

func (*Undefined) Kind() NodeKind { return KindUndefined }

// Reference names another rule. After linking, Name is the fully qualified rule name.
type Reference struct {
	Base
	Name string
}

func (*Reference) Kind() NodeKind { return KindReference }

// Operators accepted by BinaryOp.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpEq  = "=="
	OpLt  = "<"
	OpGt  = ">"
	OpLte = "<="
	OpGte = ">="
)

// IsComparison returns true for the comparison operators.
func IsComparison(op string) bool {
	switch op {
	case OpEq, OpLt, OpGt, OpLte, OpGte:
		return true
	}
	return false
}

// BinaryOp is an infix arithmetic or comparison operation.
type BinaryOp struct {
	Base
	Op    string
	Left  Node
	Right Node
}

func (*BinaryOp) Kind() NodeKind { return KindBinaryOp }

// Produit multiplies an assiette by a taux. The linker rewrites it to a BinaryOp.
type Produit struct {
	Base
	Assiette Node
	Taux     Node
}

func (*Produit) Kind() NodeKind { return KindProduit }

// Tranche is one bracket of a barème. A nil Plafond means the bracket is open-ended.
type Tranche struct {
	Taux    Node
	Plafond Node
}

// Bareme is a progressive bracket schedule applied to Assiette.
type Bareme struct {
	Base
	Assiette Node
	Tranches []Tranche
}

func (*Bareme) Kind() NodeKind { return KindBareme }

// UnitConversion multiplies Value by Factor. Only the linker creates these.
type UnitConversion struct {
	Base
	Factor float64
	From   string
	To     string
	Value  Node
}

func (*UnitConversion) Kind() NodeKind { return KindUnitConversion }

// All is true when every item is true ("toutes ces conditions").
type All struct {
	Base
	Items []Node
}

func (*All) Kind() NodeKind { return KindAll }

// Any is true when at least one item is true ("une de ces conditions").
type Any struct {
	Base
	Items []Node
}

func (*Any) Kind() NodeKind { return KindAny }

// Branch is one "si / alors" arm of a Variations node.
type Branch struct {
	Condition   Node
	Consequence Node
}

// Variations picks the consequence of the first branch whose condition holds,
// falling back to Default.
type Variations struct {
	Base
	Branches []Branch
	Default  Node
}

func (*Variations) Kind() NodeKind { return KindVariations }

// ApplicableSi yields Value when Condition holds and nothing otherwise.
type ApplicableSi struct {
	Base
	Condition Node
	Value     Node
}

func (*ApplicableSi) Kind() NodeKind { return KindApplicableSi }

// Plafond caps Value at Bound.
type Plafond struct {
	Base
	Bound Node
	Value Node
}

func (*Plafond) Kind() NodeKind { return KindPlafond }

// Plancher raises Value to at least Bound.
type Plancher struct {
	Base
	Bound Node
	Value Node
}

func (*Plancher) Kind() NodeKind { return KindPlancher }

// Somme adds its terms. The unit of the sum is the unit of the first term.
type Somme struct {
	Base
	Terms []Node
}

func (*Somme) Kind() NodeKind { return KindSomme }

// ParDefaut yields Fallback when Value is undefined.
type ParDefaut struct {
	Base
	Fallback Node
	Value    Node
}

func (*ParDefaut) Kind() NodeKind { return KindParDefaut }

// UniteAnnotation declares the unit of Value.
type UniteAnnotation struct {
	Base
	Unit  string
	Value Node
}

func (*UniteAnnotation) Kind() NodeKind { return KindUniteAnnotation }

// Possibilites declares the enumerated domain of a text rule.
type Possibilites struct {
	Base
	Values []string
}

func (*Possibilites) Kind() NodeKind { return KindPossibilites }

// Entry is one key of a Record.
type Entry struct {
	Key   string
	Value Node
}

// Record is a nested mapping whose keys are not all mechanisms.
type Record struct {
	Base
	Entries []Entry
}

func (*Record) Kind() NodeKind { return KindRecord }

// Get returns the value of key, or nil.
func (r *Record) Get(key string) Node {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Keys returns the record keys in source order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		keys[i] = e.Key
	}
	return keys
}

// List is an ordered list of nodes written with "- " items.
type List struct {
	Base
	Items []Node
}

func (*List) Kind() NodeKind { return KindList }
