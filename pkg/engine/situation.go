package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"regles-hq/calcul/pkg/lang/ast"
)

// LoadSituationFile reads a situation from a YAML file. Keys are rule names
// and values are expressions; numbers and booleans may be written as YAML
// scalars. Nested mappings spell dotted names:
//
//	contrat:
//	  salaire: 2000 €/mois
//	  statut: "'cadre'"
//
// is the situation {"contrat . salaire": "2000 €/mois", "contrat . statut": "'cadre'"}.
func LoadSituationFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read situation file %q: %w", path, err)
	}

	situation, err := ParseSituation(data)
	if err != nil {
		return nil, fmt.Errorf("invalid situation file %q: %w", path, err)
	}
	return situation, nil
}

// ParseSituation decodes a YAML situation document.
func ParseSituation(data []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	situation := make(map[string]string)
	if err := flattenSituation("", doc, situation); err != nil {
		return nil, err
	}
	return situation, nil
}

func flattenSituation(prefix string, doc map[string]any, out map[string]string) error {
	for key, value := range doc {
		name := ast.CanonicalName(key)
		if prefix != "" {
			name = prefix + ast.NameSeparator + name
		}

		switch v := value.(type) {
		case map[string]any:
			if err := flattenSituation(name, v, out); err != nil {
				return err
			}
			continue
		case nil:
			return fmt.Errorf("rule %q has no value", name)
		}

		expr, err := scalarExpression(value)
		if err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
		if _, dup := out[name]; dup {
			return fmt.Errorf("rule %q is set twice", name)
		}
		out[name] = expr
	}
	return nil
}

// scalarExpression turns a decoded YAML scalar into expression source.
func scalarExpression(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("empty expression")
		}
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return ast.FormatNumber(v), nil
	case bool:
		if v {
			return "oui", nil
		}
		return "non", nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", value)
	}
}

// ParseAssignment splits a command-line override "name=expression" at the
// first '='. Surrounding spaces are trimmed from both sides.
func ParseAssignment(s string) (name, expr string, err error) {
	name, expr, ok := strings.Cut(s, "=")
	name, expr = ast.CanonicalName(name), strings.TrimSpace(expr)
	if !ok || name == "" || expr == "" {
		return "", "", fmt.Errorf("invalid assignment %q: expected name=expression", s)
	}
	return name, expr, nil
}
