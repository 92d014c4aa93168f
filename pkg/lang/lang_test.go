package lang

import (
	"os"
	"path/filepath"
	"testing"

	langErrors "regles-hq/calcul/pkg/lang/errors"
)

func TestCompileString(t *testing.T) {
	ns, err := CompileString("salaire: 2000 €/mois\nnet: salaire * 78%", "paie.rules")
	if err != nil {
		t.Fatalf("CompileString() failed: %v", err)
	}
	if len(ns.Rules) != 2 {
		t.Errorf("len(Rules) = %d, want 2", len(ns.Rules))
	}

	tests := []struct {
		name    string
		source  string
		errType langErrors.ErrorType
	}{
		{"lex error", "a: 'oops", langErrors.ErrorTypeLex},
		{"syntax error", "a: (1", langErrors.ErrorTypeSyntax},
		{"link error", "a: b", langErrors.ErrorTypeLink},
		{"cycle", "a: b\nb: a", langErrors.ErrorTypeCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.source, "")
			if !langErrors.IsType(err, tt.errType) {
				t.Errorf("CompileString() error = %v, want %s error", err, tt.errType)
			}
		})
	}
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	salaire := filepath.Join(dir, "salaire.rules")
	net := filepath.Join(dir, "net.rules")
	if err := os.WriteFile(salaire, []byte("salaire: 2000 €/mois\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(net, []byte("net: salaire * 78%\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := CompileFile(net); !langErrors.IsType(err, langErrors.ErrorTypeLink) {
		t.Errorf("CompileFile(net) error = %v, want link error", err)
	}

	ns, err := CompileFiles([]string{salaire, net})
	if err != nil {
		t.Fatalf("CompileFiles() failed: %v", err)
	}
	if got := ns.Names(); len(got) != 2 || got[1] != "net" {
		t.Errorf("Names() = %v", got)
	}
	if errs := LintFiles([]string{salaire, net}); errs.HasErrors() {
		t.Errorf("LintFiles() = %v", errs)
	}
}

func TestLint(t *testing.T) {
	tests := []struct {
		name   string
		source string
		count  int
		types  []langErrors.ErrorType
	}{
		{"clean", "a: 1\nb: a + 1", 0, nil},
		{"syntax", "a: (1", 1, []langErrors.ErrorType{langErrors.ErrorTypeSyntax}},
		{"unknown field in strict mode", "a:\n  produit:\n    assiette: 1\n    taux: 2\n    facteur: 3", 1, []langErrors.ErrorType{langErrors.ErrorTypeSyntax}},
		{"several link errors", "a: x\nb: y\nc: 1 € * 2 €", 3, []langErrors.ErrorType{langErrors.ErrorTypeLink}},
		{"link and cycle", "a: x\nb: c\nc: b", 2, []langErrors.ErrorType{langErrors.ErrorTypeLink}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Lint(tt.source, "lint.rules")
			if errs.Count() != tt.count {
				t.Fatalf("Count() = %d, want %d: %v", errs.Count(), tt.count, errs)
			}
			for _, typ := range tt.types {
				if !errs.HasErrorType(typ) {
					t.Errorf("missing %s error in %v", typ, errs)
				}
			}
		})
	}
}
