package engine

import (
	"fmt"

	"regles-hq/calcul/pkg/config"
)

// Config contains configuration for the rule evaluation engine.
type Config struct {
	// MaxDepth is the maximum number of nested rule evaluations.
	// Rules deeper than this fail with an evaluation error instead of
	// exhausting the stack.
	// Default: 1000.
	MaxDepth int

	// EnableTrace records every computed rule with its value and duration.
	// Warning: Enabling trace adds overhead to every computation.
	// Default: false.
	EnableTrace bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:    config.DefaultEngineMaxDepth,
		EnableTrace: config.DefaultEngineTrace,
	}
}

// ConfigFrom converts the engine section of the configuration file.
func ConfigFrom(cfg config.EngineConfig) *Config {
	return &Config{
		MaxDepth:    cfg.MaxDepth,
		EnableTrace: cfg.Trace,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	return nil
}

// WithMaxDepth sets the maximum evaluation depth.
func (c *Config) WithMaxDepth(depth int) *Config {
	c.MaxDepth = depth
	return c
}

// WithTrace enables or disables tracing.
func (c *Config) WithTrace(enabled bool) *Config {
	c.EnableTrace = enabled
	return c
}
