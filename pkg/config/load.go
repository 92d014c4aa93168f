package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CALCUL_SECTION_FIELD (e.g., CALCUL_ENGINE_MAX_DEPTH).
// Environment variables always take precedence over file-based configuration.
//
// An empty path starts from the defaults instead of a file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CALCUL_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Rules overrides
	if val := os.Getenv("CALCUL_RULES_PATHS"); val != "" {
		cfg.Rules.Paths = splitList(val)
	}
	if val := os.Getenv("CALCUL_RULES_EXTENSIONS"); val != "" {
		cfg.Rules.Extensions = splitList(val)
	}
	if val := os.Getenv("CALCUL_RULES_SITUATION"); val != "" {
		cfg.Rules.Situation = val
	}
	if val := os.Getenv("CALCUL_RULES_STRICT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Strict = b
		}
	}
	if val := os.Getenv("CALCUL_RULES_MAX_FILE_SIZE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Rules.MaxFileSize = i
		}
	}
	if val := os.Getenv("CALCUL_RULES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Watch = b
		}
	}
	if val := os.Getenv("CALCUL_RULES_DEBOUNCE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Rules.DebounceInterval = d
		}
	}

	// Engine overrides
	if val := os.Getenv("CALCUL_ENGINE_MAX_DEPTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxDepth = i
		}
	}
	if val := os.Getenv("CALCUL_ENGINE_TRACE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.Trace = b
		}
	}

	// Journal overrides
	if val := os.Getenv("CALCUL_RULES_GIT_REPOSITORY"); val != "" {
		cfg.Rules.Git.Repository = val
	}
	if val := os.Getenv("CALCUL_RULES_GIT_REVISION"); val != "" {
		cfg.Rules.Git.Revision = val
	}

	if val := os.Getenv("CALCUL_JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = b
		}
	}
	if val := os.Getenv("CALCUL_JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := os.Getenv("CALCUL_JOURNAL_PATH"); val != "" {
		cfg.Journal.Path = val
	}
	if val := os.Getenv("CALCUL_JOURNAL_DRIVER"); val != "" {
		cfg.Journal.Driver = val
	}

	// Telemetry overrides
	if val := os.Getenv("CALCUL_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALCUL_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CALCUL_TELEMETRY_LOGGING_ADD_SOURCE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.AddSource = b
		}
	}
	if val := os.Getenv("CALCUL_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CALCUL_TELEMETRY_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.Address = val
	}
	if val := os.Getenv("CALCUL_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}

	if val := os.Getenv("CALCUL_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("CALCUL_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

// splitList splits a comma-separated environment value, dropping empty items.
func splitList(val string) []string {
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
