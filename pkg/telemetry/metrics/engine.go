package metrics

import (
	"time"

	"regles-hq/calcul/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks metrics related to rule evaluation.
//
// Metrics:
//   - calcul_engine_evaluations_total: Rule computations by rule and status
//   - calcul_engine_evaluation_duration_seconds: Rule computation duration
//   - calcul_engine_errors_total: Evaluation errors by error type
//   - calcul_engine_situation_changes_total: Situations installed
//   - calcul_engine_situation_overrides: Overrides in the current situation
type EngineMetrics struct {
	// Rule computations (cache misses only)
	evaluationsTotal *prometheus.CounterVec

	// Rule computation duration histogram
	evaluationDuration *prometheus.HistogramVec

	// Evaluation errors by type (eval, cycle, not_found)
	errorsTotal *prometheus.CounterVec

	// Situation installs
	situationChangesTotal prometheus.Counter

	// Number of overrides in the current situation
	situationOverrides prometheus.Gauge
}

// NewEngineMetrics creates and registers engine metrics with the provided registry.
func NewEngineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EngineMetrics {
	em := &EngineMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of rule computations",
			},
			[]string{"rule", "status"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule computation in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"rule"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "errors_total",
				Help:      "Total number of evaluation errors",
			},
			[]string{"type"},
		),

		situationChangesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "situation_changes_total",
				Help:      "Total number of situations installed",
			},
		),

		situationOverrides: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "situation_overrides",
				Help:      "Number of rules overridden by the current situation",
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.errorsTotal,
		em.situationChangesTotal,
		em.situationOverrides,
	)

	return em
}

// RecordEvaluation records one rule computation.
//
// Parameters:
//   - rule: Rule name
//   - status: "success" or "error"
//   - duration: Time taken to compute the rule, dependencies included
func (em *EngineMetrics) RecordEvaluation(rule, status string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(rule, status).Inc()
	em.evaluationDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

// RecordError records an evaluation error of the given type.
func (em *EngineMetrics) RecordError(errorType string) {
	em.errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordSituation records a situation install with its number of overrides.
func (em *EngineMetrics) RecordSituation(overrides int) {
	em.situationChangesTotal.Inc()
	em.situationOverrides.Set(float64(overrides))
}
