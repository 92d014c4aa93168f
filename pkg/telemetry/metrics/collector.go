package metrics

import (
	"sync"
	"time"

	"regles-hq/calcul/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// otherRule replaces rule labels past the cardinality limit.
const otherRule = "other"

// DefaultMaxCardinality bounds the number of distinct rule labels.
const DefaultMaxCardinality = 10000

// Collector is the entry point for all Prometheus metrics of calcul.
// It manages metric registration and provides one method per recorded event.
//
// Every method is safe to call on a nil *Collector, so components take an
// optional collector without checking it.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	engineMetrics  *EngineMetrics
	compileMetrics *CompileMetrics
	cacheMetrics   *CacheMetrics

	// Cardinality tracking for the rule label
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new registry is created.
//
// Example:
//
//	cfg := config.Default().Telemetry.Metrics
//	collector := metrics.NewCollector(&cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = config.DefaultEvaluationDurationBuckets
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		engineMetrics:      NewEngineMetrics(cfg, registry),
		compileMetrics:     NewCompileMetrics(cfg, registry),
		cacheMetrics:       NewCacheMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEvaluation records one rule computation.
//
// Example:
//
//	collector.RecordEvaluation("impôt", metrics.StatusSuccess, 20*time.Microsecond)
func (c *Collector) RecordEvaluation(rule, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}

	if !c.cardinalityLimiter.Allow(rule) {
		// Aggregate into "other" to prevent cardinality explosion
		rule = otherRule
	}

	c.engineMetrics.RecordEvaluation(rule, status, duration)
}

// RecordError records an evaluation error.
//
// Parameters:
//   - errorType: "eval", "cycle", "not_found", ...
func (c *Collector) RecordError(errorType string) {
	if !c.enabled() {
		return
	}

	c.engineMetrics.RecordError(errorType)
}

// RecordSituation records a situation install.
func (c *Collector) RecordSituation(overrides int) {
	if !c.enabled() {
		return
	}

	c.engineMetrics.RecordSituation(overrides)
}

// RecordCompile records the compilation of rule sources.
func (c *Collector) RecordCompile(status string, duration time.Duration, rules int) {
	if !c.enabled() {
		return
	}

	c.compileMetrics.RecordCompile(status, duration, rules)
}

// RecordReload records a hot reload attempt.
func (c *Collector) RecordReload(status string) {
	if !c.enabled() {
		return
	}

	c.compileMetrics.RecordReload(status)
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordMiss(cacheName)
}

// UpdateCacheSize updates the current size of a cache.
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.UpdateSize(cacheName, size)
}

// RecordCacheReset records a cache reset.
func (c *Collector) RecordCacheReset(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordReset(cacheName)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// was already seen or if the cardinality limit is not reached yet.
func (cl *CardinalityLimiter) Allow(label string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[label]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[label]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[label] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
