package ast

import "strings"

// NameSeparator joins the segments of a dotted rule name.
const NameSeparator = " . "

// Metadata keys captured verbatim on a rule.
const (
	MetaTitre       = "titre"
	MetaDescription = "description"
	MetaRemplace    = "remplace"
	MetaLien        = "lien"
	MetaType        = "type"
	MetaQuestion    = "question"
	MetaNom         = "nom"
)

// Rule is a named expression definition, the unit of reference and evaluation.
type Rule struct {
	Name     string            // Dotted rule name, segments joined by " . "
	Value    Node              // Rule body
	Meta     map[string]string // Text attributes (titre, description, ...)
	Location Location          // Location of the rule header
	Span     Span              // Byte range from the header to the end of the body
}

// Title returns the rule's titre, or its name when none was given.
func (r *Rule) Title() string {
	if t := r.Meta[MetaTitre]; t != "" {
		return t
	}
	return r.Name
}

// IsUndefined returns true if the rule was declared without a value.
func (r *Rule) IsUndefined() bool {
	_, ok := r.Value.(*Undefined)
	return ok
}

// Segments splits a dotted rule name into its trimmed segments.
func Segments(name string) []string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CanonicalName normalizes spacing around dots: "a.b" and "a . b" both become "a . b".
func CanonicalName(name string) string {
	return strings.Join(Segments(name), NameSeparator)
}

// Scopes returns the dotted-prefix scopes of a rule name, most specific first.
// For "a . b . c" it returns ["a . b . c", "a . b", "a"].
func Scopes(name string) []string {
	segments := Segments(name)
	scopes := make([]string, 0, len(segments))
	for i := len(segments); i > 0; i-- {
		scopes = append(scopes, strings.Join(segments[:i], NameSeparator))
	}
	return scopes
}

// Program is the parsed form of one or more rule sources.
type Program struct {
	File    string            // Path of the source (first file for multi-file programs)
	Source  string            // Raw source text of File, kept for diagnostics
	Sources map[string]string // Raw source text of every file, keyed by path
	Rules   []*Rule           // Rules in source order
	IDs     *IDs              // Node identifier allocator shared with the linker
}

// SourceOf returns the raw text of the given file, if it belongs to the program.
func (p *Program) SourceOf(file string) string {
	if src, ok := p.Sources[file]; ok {
		return src
	}
	if file == p.File {
		return p.Source
	}
	return ""
}

// Rule returns the rule with the given name, or nil.
func (p *Program) Rule(name string) *Rule {
	for _, r := range p.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Names returns the rule names in source order.
func (p *Program) Names() []string {
	names := make([]string, len(p.Rules))
	for i, r := range p.Rules {
		names[i] = r.Name
	}
	return names
}
