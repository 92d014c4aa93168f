// Package errors provides rich error types for the rule language pipeline.
//
// Every stage reports failures as *Error values carrying the stage (Type),
// the rule being processed, a source location, surrounding source lines and
// an optional suggestion.
//
// # Error Types
//
// ErrorTypeLex: tokenizer failures (unterminated string, unrecognized character)
//
// ErrorTypeSyntax: parser failures (unexpected token, missing mechanism field,
// several non-chainable mechanisms in one record, duplicate rule)
//
// ErrorTypeLink: unknown reference, unsupported unit conversion, type mismatch
//
// ErrorTypeCycle: a rule depends on itself, found while inferring units or while evaluating
//
// ErrorTypeEval: runtime failures of compiled rules (division by zero, operand kinds)
//
// ErrorTypeIO: file I/O errors
//
// # Basic Usage
//
//	err := errors.New(errors.ErrorTypeLink, "unknown reference %q", name).
//	    InRule(rule.Name).
//	    At(location).
//	    WithSuggestion(errors.SuggestRuleName(name, program.Names()))
//	err = errors.AddContextToError(err, program.Source)
//
// Callers test the category with IsType, which looks through wrapping:
//
//	if errors.IsType(err, errors.ErrorTypeCycle) { ... }
//
// # Error Format
//
//	[link] unknown reference "salaire net"
//	  in rule "impôt"
//	  --> rules/impot.rules:3:12
//	  |
//	->  3 |   valeur: salaire net * 10%
//	      |           ^
//	  |
//	  = suggestion: Did you mean 'salaire . net'?
package errors
