package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
)

// ErrorType categorizes the stage of the pipeline that failed.
type ErrorType string

const (
	ErrorTypeLex    ErrorType = "lex"    // Unterminated string, unrecognized character
	ErrorTypeSyntax ErrorType = "syntax" // Unexpected token, bad mechanism combination
	ErrorTypeLink   ErrorType = "link"   // Unknown reference, unit or type mismatch
	ErrorTypeCycle  ErrorType = "cycle"  // Rule depends on itself
	ErrorTypeEval   ErrorType = "eval"   // Runtime failure of a compiled rule
	ErrorTypeIO     ErrorType = "io"     // File I/O error
)

// Error represents a rich error with location, context, and suggestions.
// It provides detailed information for locating the offending rule.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Rule       string       // Rule being processed, if any
	Location   ast.Location // Source location (file, line, column)
	Context    string       // Surrounding lines of source
	Suggestion string       // Suggested fix (optional)
	Cycle      []string     // Rule names forming the cycle (cycle errors only)
}

// New creates an error of the given type.
func New(errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// At sets the error location and returns the error.
func (e *Error) At(location ast.Location) *Error {
	e.Location = location
	return e
}

// InRule sets the rule the error belongs to and returns the error.
func (e *Error) InRule(rule string) *Error {
	e.Rule = rule
	return e
}

// WithSuggestion sets the suggestion and returns the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// Error implements the error interface.
// It returns a formatted error message with location and context.
func (e *Error) Error() string {
	var sb strings.Builder

	// Error type and message
	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))

	if e.Rule != "" {
		sb.WriteString(fmt.Sprintf("  in rule %q\n", e.Rule))
	}

	// Location
	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	// Context (surrounding code)
	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	// Suggestion
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// IsType reports whether err, or any error it wraps, is an *Error of the given type.
// Error lists match when any of their errors does.
func IsType(err error, errType ErrorType) bool {
	var list *ErrorList
	if stderrors.As(err, &list) && list.HasErrorType(errType) {
		return true
	}
	for ; err != nil; err = stderrors.Unwrap(err) {
		if e, ok := err.(*Error); ok && e.Type == errType {
			return true
		}
	}
	return false
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

// ErrorList represents a collection of errors, used when linting accumulates
// problems instead of failing on the first one.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// Append adds err to the list. Nested lists are flattened and foreign errors
// are wrapped as errors of type fallback.
func (el *ErrorList) Append(err error, fallback ErrorType) {
	if err == nil {
		return
	}
	var list *ErrorList
	if stderrors.As(err, &list) {
		el.Errors = append(el.Errors, list.Errors...)
		return
	}
	if e := As(err); e != nil {
		el.Add(e)
		return
	}
	el.Add(&Error{Type: fallback, Message: err.Error()})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
// It returns all errors formatted as a single string.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}
