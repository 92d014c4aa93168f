package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// EngineIDKey is the context key for engine instance ids.
	EngineIDKey contextKey = "engine_id"

	// SituationIDKey is the context key for situation ids.
	SituationIDKey contextKey = "situation_id"

	// RuleKey is the context key for rule names.
	RuleKey contextKey = "rule"

	// CommandKey is the context key for the CLI command being run.
	CommandKey contextKey = "command"
)

// WithEngineID adds an engine id to the context.
func WithEngineID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EngineIDKey, id)
}

// GetEngineID retrieves the engine id from the context.
func GetEngineID(ctx context.Context) string {
	return stringValue(ctx, EngineIDKey)
}

// WithSituationID adds a situation id to the context.
func WithSituationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SituationIDKey, id)
}

// GetSituationID retrieves the situation id from the context.
func GetSituationID(ctx context.Context) string {
	return stringValue(ctx, SituationIDKey)
}

// WithRule adds a rule name to the context.
func WithRule(ctx context.Context, rule string) context.Context {
	return context.WithValue(ctx, RuleKey, rule)
}

// GetRule retrieves the rule name from the context.
func GetRule(ctx context.Context) string {
	return stringValue(ctx, RuleKey)
}

// WithCommand adds a CLI command name to the context.
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, CommandKey, command)
}

// GetCommand retrieves the CLI command name from the context.
func GetCommand(ctx context.Context) string {
	return stringValue(ctx, CommandKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range []contextKey{CommandKey, EngineIDKey, SituationIDKey, RuleKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// ContextLogger is a logger that automatically includes context fields.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// NewContextLogger creates a logger that automatically includes context fields.
func NewContextLogger(logger *Logger, ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: logger,
		ctx:    ctx,
	}
}

// Debug logs a debug message with context fields.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, args...)
}

// Info logs an info message with context fields.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, args...)
}

// Warn logs a warning message with context fields.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, args...)
}

// Error logs an error message with context fields.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, args...)
}

// With creates a new context logger with additional fields.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		logger: cl.logger.With(args...),
		ctx:    cl.ctx,
	}
}
