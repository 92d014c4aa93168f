package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrRuleNotFound indicates an evaluation of a name the program does not define.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNoRulesLoaded indicates a manager that has not loaded any rules yet.
	ErrNoRulesLoaded = errors.New("no rules loaded")
)

// EvaluationError wraps the failure of a top-level evaluation. Cause is the
// typed error of the rule that failed (see pkg/lang/errors), which may be a
// dependency of Rule.
type EvaluationError struct {
	Rule  string
	Cause error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %q: %v", e.Rule, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// SituationError indicates an override that could not be installed.
type SituationError struct {
	Rule       string
	Expression string
	Cause      error
}

// Error returns the error message.
func (e *SituationError) Error() string {
	return fmt.Sprintf("situation %q = %q: %v", e.Rule, e.Expression, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SituationError) Unwrap() error {
	return e.Cause
}

// ReloadError indicates the rules could not be reloaded from their source.
type ReloadError struct {
	Source string
	Cause  error
}

// Error returns the error message.
func (e *ReloadError) Error() string {
	return fmt.Sprintf("failed to reload rules from %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ReloadError) Unwrap() error {
	return e.Cause
}
