package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesMaxFileSize      = int64(10 * 1024 * 1024) // 10MB
	DefaultRulesStrict           = false
	DefaultRulesWatch            = false
	DefaultRulesDebounceInterval = 100 * time.Millisecond
	DefaultGitRevision           = "HEAD"
	DefaultGitPollInterval       = 2 * time.Second

	// Engine defaults
	DefaultEngineMaxDepth = 1000
	DefaultEngineTrace    = false

	// Journal defaults
	DefaultJournalBackend     = "sqlite"
	DefaultJournalPath        = "calcul-journal.db"
	DefaultJournalDriver      = "sqlite"
	DefaultJournalAsyncBuffer = 1000

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "text"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "calcul"
	DefaultMetricsSubsystem = "engine"
	DefaultTracingSampler   = "always"
	DefaultTracingExporter  = "otlp"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "calcul"
	DefaultTracingTimeout   = 10 * time.Second
)

// DefaultRulesExtensions are the file extensions loaded from rule directories.
var DefaultRulesExtensions = []string{".rules", ".yaml", ".yml"}

// DefaultEvaluationDurationBuckets covers 1µs to 16ms.
var DefaultEvaluationDurationBuckets = []float64{
	0.000001, 0.000002, 0.000004, 0.000008, 0.000016, 0.000032, 0.000064,
	0.000128, 0.000256, 0.000512, 0.001024, 0.002048, 0.004096, 0.008192, 0.016384,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := defaultConfig()
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Boolean fields whose default is true (telemetry.metrics.enabled) cannot be
// told apart from an explicit false once decoded, so they are only set by
// Default; LoadConfig starts from Default before decoding the file.
func ApplyDefaults(cfg *Config) {
	// Rules defaults
	if len(cfg.Rules.Extensions) == 0 {
		cfg.Rules.Extensions = append([]string(nil), DefaultRulesExtensions...)
	}
	if cfg.Rules.MaxFileSize == 0 {
		cfg.Rules.MaxFileSize = DefaultRulesMaxFileSize
	}
	if cfg.Rules.DebounceInterval == 0 {
		cfg.Rules.DebounceInterval = DefaultRulesDebounceInterval
	}
	if cfg.Rules.Git.Revision == "" {
		cfg.Rules.Git.Revision = DefaultGitRevision
	}
	if cfg.Rules.Git.PollInterval == 0 {
		cfg.Rules.Git.PollInterval = DefaultGitPollInterval
	}

	// Engine defaults
	if cfg.Engine.MaxDepth == 0 {
		cfg.Engine.MaxDepth = DefaultEngineMaxDepth
	}

	// Journal defaults
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = DefaultJournalBackend
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DefaultJournalDriver
	}
	if cfg.Journal.AsyncBuffer == 0 {
		cfg.Journal.AsyncBuffer = DefaultJournalAsyncBuffer
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.EvaluationDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingTimeout
	}
}

// defaultConfig is the starting point for decoding a file: fields with a
// true default must be set before yaml overwrites what the file mentions.
func defaultConfig() Config {
	return Config{
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
}
