// Package parser builds the syntax tree of a rules program.
//
// The grammar is indentation based. A program is a sequence of rules; the
// value of a rule is either an inline expression or an indented block. A
// block is a list (lines starting with "- ") or a record of keys. Records
// made only of mechanism keys are turned into mechanism nodes: at most one
// primary mechanism (valeur, produit, barème, somme, variations, ...) plus
// any number of chainable ones (applicable si, plafond, plancher,
// par défaut, unité), which wrap the primary in the order they are written.
// Other records are kept as plain Record nodes.
//
// Inline expressions follow the usual precedence: comparison binds loosest,
// then + and -, then * and /, then parentheses.
//
// Text fields such as titre or question are attached to the rule as metadata
// and never become part of its value.
package parser
