// Package token implements the indentation-sensitive tokenizer of the rule language.
//
// Tokenize turns source text into a flat token stream. Leading spaces are
// compared against a stack of enclosing indentation widths: a deeper line
// emits Indent, a shallower one emits one Outdent per closed level, and a
// leading "- " emits ListItem after the indentation tokens. Blank lines and
// comment lines do not change the indentation.
//
// Within a line the tokenizer recognizes, in order: comments, operators,
// parentheses, quoted strings, names (a Key when followed by ':', a Boolean
// for oui/non, otherwise a Reference) and numbers with an optional '%' and
// unit. Nested keys that do not introduce an expression (titre,
// description, ...) have the rest of their line captured as Text, and a key
// followed by '|' captures the following more indented lines as one Text.
//
//	tokens, err := token.Tokenize("salaire: 2000 €/mois")
//	fmt.Println(token.Print(tokens, false))
//	// key(salaire)
//	// number(2000)
//	// unit(€/mois)
package token
