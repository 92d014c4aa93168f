package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSituation(t *testing.T) {
	data := []byte(`
contrat:
  salaire: 2000 €/mois
  statut: "'cadre'"
  temps partiel: non
effectif: 12
taux: 0.5
prime . montant: 100 €
`)

	got, err := ParseSituation(data)
	if err != nil {
		t.Fatalf("ParseSituation() failed: %v", err)
	}

	want := map[string]string{
		"contrat . salaire":       "2000 €/mois",
		"contrat . statut":        "'cadre'",
		"contrat . temps partiel": "non",
		"effectif":                "12",
		"taux":                    "0.5",
		"prime . montant":         "100 €",
	}
	if len(got) != len(want) {
		t.Errorf("ParseSituation() = %v, want %v", got, want)
	}
	for name, expr := range want {
		if got[name] != expr {
			t.Errorf("situation[%q] = %q, want %q", name, got[name], expr)
		}
	}
}

func TestParseSituation_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"invalid yaml", "a: [1", ""},
		{"missing value", "a:", `rule "a" has no value`},
		{"empty string", "a: '  '", "empty expression"},
		{"list value", "a: [1, 2]", "unsupported value"},
		{"set twice", "a . b: 1\na:\n  b: 2", `rule "a . b" is set twice`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSituation([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoadSituationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "situation.yaml")
	if err := os.WriteFile(path, []byte("salaire: 3000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadSituationFile(path)
	if err != nil {
		t.Fatalf("LoadSituationFile() failed: %v", err)
	}
	if got["salaire"] != "3000" {
		t.Errorf("situation = %v", got)
	}

	if _, err := LoadSituationFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		expr    string
		wantErr bool
	}{
		{"salaire=3000 €/mois", "salaire", "3000 €/mois", false},
		{" contrat.statut = 'cadre' ", "contrat . statut", "'cadre'", false},
		{"test=a = b", "test", "a = b", false},
		{"salaire", "", "", true},
		{"=1", "", "", true},
		{"salaire=", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, expr, err := ParseAssignment(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAssignment() error = %v, wantErr %v", err, tt.wantErr)
			}
			if name != tt.name || expr != tt.expr {
				t.Errorf("ParseAssignment() = (%q, %q), want (%q, %q)", name, expr, tt.name, tt.expr)
			}
		})
	}
}
