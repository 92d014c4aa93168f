package linker

// BaseType is the kind of value a node evaluates to.
type BaseType int

const (
	// TypeUndefined is the type of rules declared without a value. It unifies
	// with every other type.
	TypeUndefined BaseType = iota
	TypeBoolean
	TypeString
	TypeNumber
)

// Type is the inferred type of a node. Unit is only meaningful for numbers;
// an empty unit means dimensionless.
type Type struct {
	Base BaseType
	Unit string
}

var (
	Undefined = Type{Base: TypeUndefined}
	Boolean   = Type{Base: TypeBoolean}
	String    = Type{Base: TypeString}
)

// Number returns the number type with the given unit.
func Number(unit string) Type {
	return Type{Base: TypeNumber, Unit: unit}
}

// IsUndefined returns true if the type is not known yet.
func (t Type) IsUndefined() bool {
	return t.Base == TypeUndefined
}

// IsNumber returns true for number types, whatever their unit.
func (t Type) IsNumber() bool {
	return t.Base == TypeNumber
}

// Compatible reports whether values of both types can be compared.
func (t Type) Compatible(other Type) bool {
	return t.IsUndefined() || other.IsUndefined() || t.Base == other.Base
}

func (t Type) String() string {
	switch t.Base {
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeNumber:
		if t.Unit == "" {
			return "number"
		}
		return "number(" + t.Unit + ")"
	default:
		return "undefined"
	}
}
