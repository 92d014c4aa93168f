package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
)

func parseRules(t *testing.T, source string) map[string]*ast.Rule {
	t.Helper()
	program, err := NewParser().ParseString(source, "test.rules")
	if err != nil {
		t.Fatalf("ParseString() failed: %v", err)
	}
	rules := make(map[string]*ast.Rule)
	for _, r := range program.Rules {
		rules[r.Name] = r
	}
	return rules
}

func TestParser_ListsAndRecords(t *testing.T) {
	source := `
simple record:
    a: 1
    b: 2

simple lists:
    a:
        - "ok"
        - "okok"
    b:
        - "ok"
        - "okok"

imbricated records:
    a:
        b:
            c: 1

mixed list and records:
    a:
        a1:
            - "ok"
            - "okok"
        a2:
            - "ok"
            - "okok"
    b:
        b1:
            - b11:
                - "ok"
                - b111:
                    - "ok"
                    - "okok"
        b2: okok

recursive lists:
    a:
      - toutes ces conditions:
        - "ok"
        - "okok"
      - une de ces conditions:
        - "ok"
        - "okok"

deep tree:
    a:
        aL:
            - a:
                aL:
                    - a:
                        aOk: ok
    b: ok
`
	rules := parseRules(t, strings.TrimSpace(source))

	tests := map[string]string{
		"simple record":          `{a: "1", b: "2"}`,
		"simple lists":           `{a: ["ok", "okok"], b: ["ok", "okok"]}`,
		"imbricated records":     `{a: {b: {c: "1"}}}`,
		"mixed list and records": `{a: {a1: ["ok", "okok"], a2: ["ok", "okok"]}, b: {b1: [{b11: ["ok", {b111: ["ok", "okok"]}]}], b2: "okok"}}`,
		"recursive lists":        `{a: [(toutes ces conditions "ok" "okok"), (une de ces conditions "ok" "okok")]}`,
		"deep tree":              `{a: {aL: [{a: {aL: [{a: {aOk: "ok"}}]}}]}, b: "ok"}`,
	}

	if len(rules) != len(tests) {
		t.Errorf("len(rules) = %d, want %d", len(rules), len(tests))
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			rule, ok := rules[name]
			if !ok {
				t.Fatalf("rule %q not parsed", name)
			}
			if got := ast.Print(rule.Value); got != want {
				t.Errorf("value =\n%s\nwant\n%s", got, want)
			}
		})
	}
}

func TestParser_Valeur(t *testing.T) {
	rules := parseRules(t, "aide:\n    titre: Aide vélo\n    valeur: 50 €")

	aide := rules["aide"]
	if aide.Meta[ast.MetaTitre] != "Aide vélo" {
		t.Errorf("titre = %q, want %q", aide.Meta[ast.MetaTitre], "Aide vélo")
	}
	c, ok := aide.Value.(*ast.Constant)
	if !ok {
		t.Fatalf("value = %T, want *ast.Constant", aide.Value)
	}
	if c.Value != 50.0 || c.Unit != "€" {
		t.Errorf("constant = %v %q, want 50 €", c.Value, c.Unit)
	}
	if aide.Location.Line != 1 || aide.Location.File != "test.rules" {
		t.Errorf("location = %s", aide.Location)
	}
}

func TestParser_Expressions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"precedence", "a: 1 + 2 * 3 = 7", "(== (+ 1 (* 2 3)) 7)"},
		{"parentheses", "a: (1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"left associative", "a: 10 - 4 - 3", "(- (- 10 4) 3)"},
		{"division", "a: b / 12 * 2", "(* (/ [b] 12) 2)"},
		{"comparison", "a: âge >= 18", "(>= [âge] 18)"},
		{"negative literal", "a: -5 €", "-5 €"},
		{"dotted reference", "a . b: c.d + 1", "(+ [c . d] 1)"},
		{"text", "a: 'salarié'", `"salarié"`},
		{"boolean", "a: non", "non"},
		{"unit", "a: 2000 €/mois", "2000 €/mois"},
		{"percentage", "a: 20% * b", "(* 0.2 [b])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := NewParser().ParseString(tt.source, "")
			if err != nil {
				t.Fatalf("ParseString() failed: %v", err)
			}
			if got := ast.Print(program.Rules[0].Value); got != tt.want {
				t.Errorf("value = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParser_Mechanisms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "produit",
			source: "a:\n  produit:\n    assiette: 1000 €\n    taux: 5%",
			want:   "(produit 1000 € 0.05)",
		},
		{
			name: "barème",
			source: "impôt:\n  barème:\n    assiette: revenu\n    tranches:\n" +
				"      - taux: 10%\n        plafond: 1000 €\n      - taux: 20%",
			want: "(barème [revenu] (tranche 0.1 1000 €) (tranche 0.2))",
		},
		{
			name:   "somme",
			source: "a:\n  somme:\n    - b\n    - 10",
			want:   "(somme [b] 10)",
		},
		{
			name:   "toutes ces conditions",
			source: "a:\n  toutes ces conditions:\n    - b\n    - c > 2",
			want:   "(toutes ces conditions [b] (> [c] 2))",
		},
		{
			name:   "variations",
			source: "a:\n  variations:\n    - si: b > 2\n      alors: 10\n    - sinon: 5",
			want:   "(variations (si (> [b] 2) alors 10) (sinon 5))",
		},
		{
			name:   "variations without sinon",
			source: "a:\n  variations:\n    - si: b\n      alors: 1",
			want:   "(variations (si [b] alors 1) (sinon undefined))",
		},
		{
			name:   "possibilités",
			source: "a:\n  possibilités:\n    - 'salarié'\n    - indépendant",
			want:   `(possibilités "salarié" "indépendant")`,
		},
		{
			name:   "unité",
			source: "a:\n  valeur: 50\n  unité: €/mois",
			want:   "(unité €/mois 50)",
		},
		{
			name:   "chained in written order",
			source: "a:\n  valeur: 100\n  plafond: 80\n  applicable si: b",
			want:   "(applicable si [b] (plafond 80 100))",
		},
		{
			name:   "chained with plancher and par défaut",
			source: "a:\n  plancher: 0\n  par défaut: 10\n  valeur: b - c",
			want:   "(par défaut 10 (plancher 0 (- [b] [c])))",
		},
		{
			name:   "chainable only",
			source: "a:\n  applicable si: b",
			want:   "(applicable si [b] undefined)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := NewParser().ParseString(tt.source, "")
			if err != nil {
				t.Fatalf("ParseString() failed: %v", err)
			}
			if got := ast.Print(program.Rules[0].Value); got != tt.want {
				t.Errorf("value =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParser_UndefinedRules(t *testing.T) {
	rules := parseRules(t, "a:\nb: 1\nc:\n  titre: Nombre d'enfants\n  question: Combien ?\nd:")

	for _, name := range []string{"a", "c", "d"} {
		if !rules[name].IsUndefined() {
			t.Errorf("rule %q = %s, want undefined", name, ast.Print(rules[name].Value))
		}
	}
	if rules["b"].IsUndefined() {
		t.Error("rule b is undefined")
	}
	if got := rules["c"].Meta[ast.MetaQuestion]; got != "Combien ?" {
		t.Errorf("question = %q", got)
	}
	if got := rules["c"].Title(); got != "Nombre d'enfants" {
		t.Errorf("Title() = %q", got)
	}
}

func TestParser_NodeIDsAreUnique(t *testing.T) {
	program, err := NewParser().ParseString("a: 1 + b * 2\nb:\n  somme:\n    - 1\n    - 2", "")
	if err != nil {
		t.Fatalf("ParseString() failed: %v", err)
	}

	seen := make(map[ast.NodeID]bool)
	for _, r := range program.Rules {
		ast.Inspect(r.Value, func(n ast.Node) bool {
			if seen[n.ID()] {
				t.Errorf("duplicate node id %d", n.ID())
			}
			seen[n.ID()] = true
			return true
		})
	}
	if program.IDs.Count() < len(seen) {
		t.Errorf("IDs.Count() = %d, want >= %d", program.IDs.Count(), len(seen))
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "two non-chainable mechanisms",
			source: "a:\n  somme:\n    - 1\n  produit:\n    assiette: 1\n    taux: 2",
			want:   "cannot be used in the same record",
		},
		{
			name:   "missing required field",
			source: "a:\n  produit:\n    assiette: 1",
			want:   `missing required field "taux"`,
		},
		{
			name:   "empty nested record",
			source: "a:\n  valeur:\n    titre: x",
			want:   "empty record",
		},
		{
			name:   "duplicate rule",
			source: "a: 1\nb: 2\na: 3",
			want:   `duplicate rule "a"`,
		},
		{
			name:   "trailing token",
			source: "a: 1 2",
			want:   "unexpected token number(2)",
		},
		{
			name:   "unclosed parenthesis",
			source: "a: (1 + 2",
			want:   "unclosed parenthesis",
		},
		{
			name: "open tranche before the last",
			source: "a:\n  barème:\n    assiette: 10\n    tranches:\n" +
				"      - taux: 1%\n      - taux: 2%\n        plafond: 100",
			want: "only the last tranche may omit its plafond",
		},
		{
			name: "descending plafonds",
			source: "a:\n  barème:\n    assiette: 10\n    tranches:\n" +
				"      - taux: 1%\n        plafond: 2000\n      - taux: 2%\n        plafond: 1000\n      - taux: 3%",
			want: "strictly ascending",
		},
		{
			name:   "sinon not last",
			source: "a:\n  variations:\n    - sinon: 1\n    - si: b\n      alors: 2",
			want:   "sinon must be the last branch",
		},
		{
			name:   "missing alors",
			source: "a:\n  variations:\n    - si: b",
			want:   `missing "alors"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseString(tt.source, "test.rules")
			if err == nil {
				t.Fatal("ParseString() succeeded, want error")
			}
			if !langErrors.IsType(err, langErrors.ErrorTypeSyntax) {
				t.Errorf("error type: %v, want syntax", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParser_StrictMode(t *testing.T) {
	source := "a:\n  produit:\n    assiette: 1\n    taux: 2\n    facteur: 3"

	if _, err := NewParser().ParseString(source, ""); err != nil {
		t.Fatalf("non-strict ParseString() failed: %v", err)
	}

	_, err := NewParser().WithStrictMode(true).ParseString(source, "")
	if err == nil || !strings.Contains(err.Error(), `unknown field "facteur"`) {
		t.Errorf("strict ParseString() error = %v, want unknown field", err)
	}
}

func TestParser_MaxDepth(t *testing.T) {
	_, err := NewParser().WithMaxDepth(2).ParseString("a: ((((1))))", "")
	if err == nil || !strings.Contains(err.Error(), "maximum depth") {
		t.Errorf("ParseString() error = %v, want maximum depth error", err)
	}
}

func TestParser_LexErrorsPropagate(t *testing.T) {
	for _, source := range []string{"a: 'oops", "a:\n\tvaleur: 5"} {
		program, err := NewParser().ParseString(source, "")
		if !langErrors.IsType(err, langErrors.ErrorTypeLex) {
			t.Errorf("ParseString(%q) = %v, %v, want lex error", source, program, err)
		}
	}
}

func TestParseExpression(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"referenced in situation", "[referenced in situation]"},
		{"1000 €/mois", "1000 €/mois"},
		{"5", "5"},
		{"oui", "oui"},
		{"a + 22", "(+ [a] 22)"},
		{"  7", "7"},
	}

	for _, tt := range tests {
		ids := &ast.IDs{}
		node, err := ParseExpression(tt.source, ids)
		if err != nil {
			t.Errorf("ParseExpression(%q) failed: %v", tt.source, err)
			continue
		}
		if got := ast.Print(node); got != tt.want {
			t.Errorf("ParseExpression(%q) = %s, want %s", tt.source, got, tt.want)
		}
	}

	for _, bad := range []string{"", "1 2", "a:"} {
		if _, err := ParseExpression(bad, &ast.IDs{}); err == nil {
			t.Errorf("ParseExpression(%q) succeeded, want error", bad)
		}
	}
}

func TestParser_ParseFileAndMulti(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.rules")
	second := filepath.Join(dir, "b.rules")
	dup := filepath.Join(dir, "c.rules")

	writeFile(t, first, "salaire: 2000 €/mois\n")
	writeFile(t, second, "net: salaire * 78%\n")
	writeFile(t, dup, "\nsalaire: 1\n")

	program, err := NewParser().Parse(first)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(program.Rules) != 1 || program.File != first {
		t.Errorf("Parse() = %d rules from %q", len(program.Rules), program.File)
	}

	program, err = NewParser().ParseMulti([]string{first, second})
	if err != nil {
		t.Fatalf("ParseMulti() failed: %v", err)
	}
	if got := strings.Join(program.Names(), ","); got != "salaire,net" {
		t.Errorf("Names() = %s", got)
	}
	if program.SourceOf(second) == "" {
		t.Error("SourceOf(second) is empty")
	}
	if program.Rule("net").Location.File != second {
		t.Errorf("net location = %s", program.Rule("net").Location)
	}

	_, err = NewParser().ParseMulti([]string{first, dup})
	if err == nil || !strings.Contains(err.Error(), "duplicate rule") {
		t.Errorf("ParseMulti() with duplicates error = %v", err)
	}
	if loc := langErrors.As(err).Location; loc.File != dup || loc.Line != 2 {
		t.Errorf("duplicate location = %s, want %s:2", loc, dup)
	}

	if _, err := NewParser().WithMaxFileSize(4).Parse(first); !langErrors.IsType(err, langErrors.ErrorTypeIO) {
		t.Errorf("Parse() with small limit error = %v, want io error", err)
	}
	if _, err := NewParser().Parse(filepath.Join(dir, "missing.rules")); !langErrors.IsType(err, langErrors.ErrorTypeIO) {
		t.Errorf("Parse() missing file error = %v, want io error", err)
	}
}

func TestParser_ParseSources(t *testing.T) {
	program, err := NewParser().ParseSources([]Source{
		{Path: "a.rules", Text: "a: 1\n"},
		{Path: "b.rules", Text: "b: a + 1\n"},
	})
	if err != nil {
		t.Fatalf("ParseSources() failed: %v", err)
	}
	if got := strings.Join(program.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %s", got)
	}
	if program.SourceOf("b.rules") != "b: a + 1\n" {
		t.Errorf("SourceOf(b.rules) = %q", program.SourceOf("b.rules"))
	}

	if _, err := NewParser().ParseSources(nil); !langErrors.IsType(err, langErrors.ErrorTypeIO) {
		t.Errorf("ParseSources(nil) error = %v, want io error", err)
	}
	_, err = NewParser().WithMaxFileSize(3).ParseSources([]Source{{Path: "big.rules", Text: "a: 1234"}})
	if !langErrors.IsType(err, langErrors.ErrorTypeIO) {
		t.Errorf("ParseSources() with small limit error = %v, want io error", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}
