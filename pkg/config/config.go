package config

import "time"

// Config is the root configuration structure for calcul.
// It contains the rule sources, the evaluation engine options and the
// telemetry settings.
type Config struct {
	// Rules contains the location of the rule files and how they are loaded.
	Rules RulesConfig `yaml:"rules"`

	// Engine contains the evaluation engine options.
	Engine EngineConfig `yaml:"engine"`

	// Journal contains configuration for the evaluation journal.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig contains configuration for loading rule files.
type RulesConfig struct {
	// Paths lists the rule files or directories to load. Directories are
	// walked recursively for files with one of Extensions.
	Paths []string `yaml:"paths"`

	// Extensions is the list of file extensions treated as rule files.
	// Default: [".rules", ".yaml", ".yml"]
	Extensions []string `yaml:"extensions"`

	// Situation is an optional situation file applied after loading.
	Situation string `yaml:"situation"`

	// Strict rejects unknown mechanism fields instead of ignoring them.
	// Default: false
	Strict bool `yaml:"strict"`

	// MaxFileSize is the largest rule file accepted, in bytes.
	// Default: 10MB
	MaxFileSize int64 `yaml:"max_file_size"`

	// Watch enables automatic reloading when rule files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period after a file change before the
	// rules are reloaded.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Git loads the rules from a commit of a local Git repository instead
	// of the file system. Paths are then relative to the repository root.
	Git GitConfig `yaml:"git"`
}

// GitConfig selects a commit of a local Git repository as the rule source.
type GitConfig struct {
	// Repository is the path of the repository. Empty disables the Git
	// source.
	Repository string `yaml:"repository"`

	// Revision is the commit to read: a branch, a tag or a hash.
	// Default: "HEAD"
	Revision string `yaml:"revision"`

	// PollInterval is how often the revision is resolved again when
	// watching.
	// Default: 2s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// EngineConfig contains configuration for the evaluation engine.
type EngineConfig struct {
	// MaxDepth bounds the depth of nested rule evaluations.
	// Default: 1000
	MaxDepth int `yaml:"max_depth"`

	// Trace records every computed rule with its value and duration.
	// Default: false
	Trace bool `yaml:"trace"`
}

// JournalConfig contains configuration for the evaluation journal, which
// records every evaluated rule with its value and situation.
type JournalConfig struct {
	// Enabled records evaluations made by the CLI.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	// Default: "calcul-journal.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver used for SQLite.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// AsyncBuffer is the number of entries queued before Record drops.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// Retention controls pruning of old entries.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains configuration for journal pruning.
type RetentionConfig struct {
	// MaxAge is how long entries are kept. Zero keeps entries forever.
	MaxAge time.Duration `yaml:"max_age"`

	// MaxEntries is the maximum number of entries kept. Zero is unlimited.
	MaxEntries int64 `yaml:"max_entries"`

	// Schedule is a cron expression for pruning while watching rules.
	// Empty disables scheduled pruning.
	// Example: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// ArchivePath is a directory receiving pruned entries as JSON.
	// Empty deletes without archiving.
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Address is the listen address of the metrics endpoint served by
	// `calcul eval --watch`. Empty disables the endpoint.
	Address string `yaml:"address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "calcul"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// EvaluationDurationBuckets defines histogram buckets for rule
	// evaluation duration (seconds).
	// Default: exponential from 1µs to 16ms
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether rule loads are traced.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "calcul"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter options.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter options.
type OTLPConfig struct {
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
