package token

import (
	"strings"
	"testing"

	langErrors "regles-hq/calcul/pkg/lang/errors"
)

func dump(t *testing.T, source string) string {
	t.Helper()
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", source, err)
	}
	return Print(tokens, false)
}

func TestTokenize_Lines(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "unit after number",
			source: "chiffre affaires: 20000 €/mois",
			want:   []string{"key(chiffre affaires)", "number(20000)", "unit(€/mois)"},
		},
		{
			name:   "dotted key and boolean",
			source: "localisation . ZFE: oui",
			want:   []string{"key(localisation . ZFE)", "boolean(true)"},
		},
		{
			name:   "comparison",
			source: "âge >= 6",
			want:   []string{"reference(âge)", "operator(>=)", "number(6)"},
		},
		{
			name:   "percentage",
			source: "taux: 20%",
			want:   []string{"key(taux)", "number(0.2)"},
		},
		{
			name:   "percentage with spaces",
			source: "taux: 7.5 %",
			want:   []string{"key(taux)", "number(0.075)"},
		},
		{
			name:   "parenthesized expression",
			source: "a: (b + 2) * c",
			want: []string{
				"key(a)", "paren-open", "reference(b)", "operator(+)", "number(2)",
				"paren-close", "operator(*)", "reference(c)",
			},
		},
		{
			name:   "hyphenated name",
			source: "prime: aide-vélo + 1",
			want:   []string{"key(prime)", "reference(aide-vélo)", "operator(+)", "number(1)"},
		},
		{
			name:   "trailing comment",
			source: "a: 1 # un commentaire",
			want:   []string{"key(a)", "number(1)"},
		},
		{
			name:   "empty rule",
			source: "a:",
			want:   []string{"key(a)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dump(t, tt.source)
			want := strings.Join(tt.want, "\n")
			if got != want {
				t.Errorf("Tokenize(%q) =\n%s\nwant\n%s", tt.source, got, want)
			}
		})
	}
}

func TestTokenize_QuotingEquivalence(t *testing.T) {
	canonical := dump(t, `string: 'hello'`)
	if canonical != "key(string)\ntext(hello)" {
		t.Fatalf("canonical = %q", canonical)
	}

	for _, source := range []string{
		`string: "hello"`,
		`string: "'hello'"`,
		`string: '"hello"'`,
	} {
		if got := dump(t, source); got != canonical {
			t.Errorf("Tokenize(%s) = %q, want %q", source, got, canonical)
		}
	}
}

func TestTokenize_Escapes(t *testing.T) {
	tokens, err := Tokenize(`a: 'l\'aide'`)
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}
	if tokens[1].Value != "l'aide" {
		t.Errorf("text = %q, want %q", tokens[1].Value, "l'aide")
	}
}

func TestTokenize_IndentationBalance(t *testing.T) {
	source := `recursive lists:
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
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}

	indents, outdents := 0, 0
	for _, tok := range tokens {
		switch tok.Kind {
		case Indent:
			indents++
		case Outdent:
			outdents++
		}
	}
	if indents == 0 {
		t.Fatal("expected Indent tokens")
	}
	if indents != outdents {
		t.Errorf("Indent count = %d, Outdent count = %d", indents, outdents)
	}
	if last := tokens[len(tokens)-1]; last.Kind != Outdent {
		t.Errorf("last token = %s, want outdent", last)
	}
}

func TestTokenize_ListItems(t *testing.T) {
	source := "simple lists:\n    a:\n        - \"ok\"\n        - \"okok\"\nb: 1"
	want := strings.Join([]string{
		"key(simple lists)",
		"indent",
		"key(a)",
		"indent",
		"list-item",
		"text(ok)",
		"list-item",
		"text(okok)",
		"outdent",
		"outdent",
		"key(b)",
		"number(1)",
	}, "\n")

	if got := dump(t, source); got != want {
		t.Errorf("Tokenize() =\n%s\nwant\n%s", got, want)
	}
}

func TestTokenize_NestedText(t *testing.T) {
	source := "aide:\n    titre: Aide vélo\n    note: 'citée'\n    valeur: 50 €"
	want := strings.Join([]string{
		"key(aide)",
		"indent",
		"key(titre)",
		"text(Aide vélo)",
		"key(note)",
		"text(citée)",
		"key(valeur)",
		"number(50)",
		"unit(€)",
		"outdent",
	}, "\n")

	if got := dump(t, source); got != want {
		t.Errorf("Tokenize() =\n%s\nwant\n%s", got, want)
	}
}

func TestTokenize_UnitKey(t *testing.T) {
	got := dump(t, "a:\n  unité: €/an\n  valeur: 12")
	want := "key(a)\nindent\nkey(unité)\nunit(€/an)\nkey(valeur)\nnumber(12)\noutdent"
	if got != want {
		t.Errorf("Tokenize() =\n%s\nwant\n%s", got, want)
	}
}

func TestTokenize_MultiLine(t *testing.T) {
	source := "a:\n  description: |\n    Première ligne\n      deuxième ligne\n\n    fin\n  valeur: 1\n"
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}

	var text string
	for _, tok := range tokens {
		if tok.Kind == Text {
			text = tok.Value
		}
	}
	want := "Première ligne\ndeuxième ligne\n\nfin"
	if text != want {
		t.Errorf("multi-line text = %q, want %q", text, want)
	}

	got := Print(tokens, false)
	if !strings.Contains(got, "key(valeur)\nnumber(1)") {
		t.Errorf("rule continues after the block, got:\n%s", got)
	}
}

func TestTokenize_CommentAndBlankLines(t *testing.T) {
	source := "# en-tête\na:\n  valeur: 1\n\n    \n  # commentaire\n  plafond: 2\n"
	got := dump(t, source)
	want := "key(a)\nindent\nkey(valeur)\nnumber(1)\nkey(plafond)\nnumber(2)\noutdent"
	if got != want {
		t.Errorf("Tokenize() =\n%s\nwant\n%s", got, want)
	}
}

func TestTokenize_Spans(t *testing.T) {
	tokens, err := Tokenize("salaire: 1500 €")
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}
	source := "salaire: 1500 €"
	if got := source[tokens[0].Span.Start:tokens[0].Span.End]; got != "salaire" {
		t.Errorf("key span = %q", got)
	}
	if got := source[tokens[1].Span.Start:tokens[1].Span.End]; got != "1500" {
		t.Errorf("number span = %q", got)
	}
	if got := source[tokens[2].Span.Start:tokens[2].Span.End]; got != "€" {
		t.Errorf("unit span = %q", got)
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unterminated string", "a: 'hello", "unterminated string"},
		{"unterminated legacy string", `a: "'hello'`, "unterminated legacy string"},
		{"unrecognized character", "a: 1 & 2", "unrecognized character"},
		{"missing unit", "a:\n  unité: 12", "missing unit"},
		{"empty multi-line", "a:\n  description: |\n  valeur: 1", "unterminated multi-line string"},
		{"tab indentation", "a:\n\tvaleur: 5", "tabs are not allowed in indentation"},
		{"tab after spaces", "a:\n  \tvaleur: 5", "tabs are not allowed in indentation"},
		{"tab after list item", "a:\n  somme:\n    - \tb", "tabs are not allowed in indentation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.source)
			if err == nil {
				t.Fatal("Tokenize() succeeded, want error")
			}
			if !langErrors.IsType(err, langErrors.ErrorTypeLex) {
				t.Errorf("error type = %v, want lex", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestTokenize_TabIndentation(t *testing.T) {
	_, err := Tokenize("a:\n  \tvaleur: 5")
	e := langErrors.As(err)
	if e == nil {
		t.Fatalf("Tokenize() error = %v, want a lex error", err)
	}
	if e.Location.Line != 2 || e.Location.Column != 3 {
		t.Errorf("location = %d:%d, want 2:3", e.Location.Line, e.Location.Column)
	}

	// Blank and comment lines may hold tabs
	tokens, err := Tokenize("a:\n\t\n\t# note\n  valeur: 5")
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}
	if tokens[len(tokens)-1].Kind != Outdent {
		t.Errorf("last token = %s, want an outdent", tokens[len(tokens)-1])
	}
}

func TestPrint_LineNumbers(t *testing.T) {
	tokens, err := Tokenize("a: 1")
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}
	if got := Print(tokens, true); got != "0 key(a)\n1 number(1)" {
		t.Errorf("Print() = %q", got)
	}
}
