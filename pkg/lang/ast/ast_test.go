package ast

import (
	"reflect"
	"testing"
)

func TestScopes(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"a", []string{"a"}},
		{"a . b . c", []string{"a . b . c", "a . b", "a"}},
		{"a.b", []string{"a . b", "a"}},
		{"contrat . salaire brut", []string{"contrat . salaire brut", "contrat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scopes(tt.name); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scopes(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCanonicalName(t *testing.T) {
	tests := map[string]string{
		"a.b":           "a . b",
		"a . b":         "a . b",
		" a .  b . c ":  "a . b . c",
		"salaire brut":  "salaire brut",
		"prime . 13ème": "prime . 13ème",
	}
	for in, want := range tests {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocationOf(t *testing.T) {
	source := "a: 1\nété:\n  valeur: 2"

	tests := []struct {
		offset     int
		line, col  int
		wantString string
	}{
		{0, 1, 1, "rules.txt:1:1"},
		{3, 1, 4, "rules.txt:1:4"},
		{5, 2, 1, "rules.txt:2:1"},
		// "été" is 5 bytes but 3 columns
		{len("a: 1\nété"), 2, 4, "rules.txt:2:4"},
		{len(source) + 10, 3, 12, "rules.txt:3:12"},
	}

	for _, tt := range tests {
		loc := LocationOf("rules.txt", source, tt.offset)
		if loc.Line != tt.line || loc.Column != tt.col {
			t.Errorf("LocationOf(%d) = %d:%d, want %d:%d", tt.offset, loc.Line, loc.Column, tt.line, tt.col)
		}
		if loc.String() != tt.wantString {
			t.Errorf("Location.String() = %q, want %q", loc.String(), tt.wantString)
		}
	}
}

func TestSpanJoin(t *testing.T) {
	a := Span{Start: 4, End: 8}
	b := Span{Start: 10, End: 12}
	if got := a.Join(b); got != (Span{Start: 4, End: 12}) {
		t.Errorf("Join() = %+v", got)
	}
	if got := (Span{}).Join(b); got != b {
		t.Errorf("zero Join() = %+v, want %+v", got, b)
	}
}

func TestPrintAndReferences(t *testing.T) {
	ids := &IDs{}
	node := &BinaryOp{
		Base: ids.Base(Span{}),
		Op:   OpAdd,
		Left: &Constant{Base: ids.Base(Span{}), Value: 1500.0, Unit: "€"},
		Right: &ApplicableSi{
			Base:      ids.Base(Span{}),
			Condition: &Reference{Base: ids.Base(Span{}), Name: "a . b"},
			Value: &Somme{Base: ids.Base(Span{}), Terms: []Node{
				&Reference{Base: ids.Base(Span{}), Name: "c"},
				&Reference{Base: ids.Base(Span{}), Name: "a . b"},
			}},
		},
	}

	want := "(+ 1500 € (applicable si [a . b] (somme [c] [a . b])))"
	if got := Print(node); got != want {
		t.Errorf("Print() = %s, want %s", got, want)
	}

	refs := References(node)
	if !reflect.DeepEqual(refs, []string{"a . b", "c"}) {
		t.Errorf("References() = %v", refs)
	}

	if ids.Count() != 7 {
		t.Errorf("IDs.Count() = %d, want 7", ids.Count())
	}
}

func TestRuleTitle(t *testing.T) {
	r := &Rule{Name: "aide", Meta: map[string]string{MetaTitre: "Aide vélo"}}
	if r.Title() != "Aide vélo" {
		t.Errorf("Title() = %q", r.Title())
	}
	r = &Rule{Name: "aide", Value: &Undefined{}}
	if r.Title() != "aide" {
		t.Errorf("Title() = %q, want rule name", r.Title())
	}
	if !r.IsUndefined() {
		t.Error("IsUndefined() = false, want true")
	}
}
