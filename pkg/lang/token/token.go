package token

import (
	"fmt"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
)

// Kind is the type of a lexical token.
type Kind int

const (
	Key        Kind = iota // rule or record key, "name:"
	Reference              // rule name used in an expression
	Number                 // number literal, percentages already divided by 100
	Unit                   // unit symbol following a number or "unité:"
	Boolean                // oui / non
	Text                   // quoted string, free text or multi-line block
	Operator               // + - * / = < > <= >=
	ParenOpen              // (
	ParenClose             // )
	Indent                 // indentation increased
	Outdent                // indentation decreased by one level
	ListItem               // "- " list marker
)

// String returns the token kind name used in token dumps.
func (k Kind) String() string {
	switch k {
	case Key:
		return "key"
	case Reference:
		return "reference"
	case Number:
		return "number"
	case Unit:
		return "unit"
	case Boolean:
		return "boolean"
	case Text:
		return "text"
	case Operator:
		return "operator"
	case ParenOpen:
		return "paren-open"
	case ParenClose:
		return "paren-close"
	case Indent:
		return "indent"
	case Outdent:
		return "outdent"
	case ListItem:
		return "list-item"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is a single lexical token.
type Token struct {
	Kind   Kind
	Value  string   // key, reference, unit, text or operator
	Number float64  // value of Number tokens
	Bool   bool     // value of Boolean tokens
	Span   ast.Span // byte range in the source
}

// HasValue returns true for kinds that carry a payload.
func (t Token) HasValue() bool {
	switch t.Kind {
	case Indent, Outdent, ListItem, ParenOpen, ParenClose:
		return false
	}
	return true
}

// String renders the token as kind(value), e.g. key(salaire) or number(0.2).
func (t Token) String() string {
	switch t.Kind {
	case Number:
		return fmt.Sprintf("%s(%s)", t.Kind, ast.FormatNumber(t.Number))
	case Boolean:
		return fmt.Sprintf("%s(%t)", t.Kind, t.Bool)
	}
	if t.HasValue() {
		return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
	}
	return t.Kind.String()
}

// Is returns true if the token has the given kind and, for keys, references
// and operators, the given value.
func (t Token) Is(kind Kind, value string) bool {
	return t.Kind == kind && t.Value == value
}

// Print renders a token stream one token per line. With lineNumbers, each
// line is prefixed by the token index.
func Print(tokens []Token, lineNumbers bool) string {
	width := len(fmt.Sprintf("%d", len(tokens)))
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			sb.WriteString("\n")
		}
		if lineNumbers {
			sb.WriteString(fmt.Sprintf("%-*d ", width, i))
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}
