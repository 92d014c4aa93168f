package linker

import (
	"fmt"
	"sort"
)

// conversion is a directed pair of units.
type conversion struct {
	from string
	to   string
}

// conversions holds the factor applied to a quantity tagged `from` to express
// it in `to`. Reverse directions use the reciprocal.
var conversions = map[conversion]float64{
	{from: "an", to: "mois"}:     12,
	{from: "€/mois", to: "€/an"}: 12,
}

// ConversionFactor returns the factor that converts a quantity expressed in
// unit from into unit to, and false if the pair is not supported.
// ConversionFactor(to, from) and ConversionFactor(from, to) are reciprocals.
func ConversionFactor(to, from string) (float64, bool) {
	if to == from {
		return 1, true
	}
	if f, ok := conversions[conversion{from: from, to: to}]; ok {
		return f, true
	}
	if f, ok := conversions[conversion{from: to, to: from}]; ok {
		return 1 / f, true
	}
	return 0, false
}

// KnownConversions lists the supported conversions as "from => to", in both
// directions.
func KnownConversions() []string {
	known := make([]string, 0, 2*len(conversions))
	for c := range conversions {
		known = append(known, c.from+" => "+c.to, c.to+" => "+c.from)
	}
	sort.Strings(known)
	return known
}

// InferUnit returns the unit of a product or quotient of two numbers.
// One side must be dimensionless; a dimensionless value cannot be divided by
// a value with a unit.
func InferUnit(op, left, right string) (string, error) {
	switch op {
	case "*":
		if left != "" && right != "" {
			return "", fmt.Errorf("cannot multiply %s by %s", left, right)
		}
		if left != "" {
			return left, nil
		}
		return right, nil

	case "/":
		switch {
		case right == "":
			return left, nil
		case left == "":
			return "", fmt.Errorf("cannot divide a dimensionless value by %s", right)
		default:
			return "", fmt.Errorf("cannot divide %s by %s", left, right)
		}
	}
	return "", fmt.Errorf("operator %q does not combine units", op)
}
