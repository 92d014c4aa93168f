// Package logging builds the process logger from configuration.
//
// Logger wraps a log/slog logger with one of three handlers: JSON, text, or
// console (text without timestamps). Components that only need a
// *slog.Logger receive Logger.Slog().
//
// Context fields (engine_id, situation_id, rule, command) are stored in a
// context.Context with the With* helpers and added to every record logged
// through the *Context methods:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	ctx := logging.WithCommand(ctx, "eval")
//	logger.InfoContext(ctx, "Rules loaded", "rules", 42)
package logging
