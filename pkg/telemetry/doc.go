// Package telemetry groups the observability packages of calcul.
//
// # Components
//
//   - logging: structured logging on log/slog
//   - metrics: Prometheus metrics for compilation, evaluation and caches
//   - tracing: OpenTelemetry spans for rule loads
//   - health: readiness checks served while watching rules
//
// # Usage
//
//	cfg := config.MustGetConfig()
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	manager, err := engine.NewManager(src, &engine.ManagerConfig{Tracer: tracer}, logger.Slog(), collector)
//
// A nil *metrics.Collector records nothing, so components take one without
// checking whether metrics are enabled.
package telemetry
