package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
	"regles-hq/calcul/pkg/lang/compiler"
)

// FormatValue renders a value the way it is written in rules: numbers with
// their unit, booleans as oui/non, text between quotes. Undefined values
// render as "undefined".
func FormatValue(v compiler.Value, unit string) string {
	switch v := v.(type) {
	case nil:
		return "undefined"
	case float64:
		if unit == "" {
			return ast.FormatNumber(v)
		}
		return ast.FormatNumber(v) + " " + unit
	case bool:
		if v {
			return "oui"
		}
		return "non"
	case string:
		return "'" + v + "'"
	case []compiler.Value:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = FormatValue(item, "")
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]compiler.Value:
		keys := slices.Sorted(maps.Keys(v))
		entries := make([]string, len(keys))
		for i, k := range keys {
			entries[i] = k + ": " + FormatValue(v[k], "")
		}
		return "{" + strings.Join(entries, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}
