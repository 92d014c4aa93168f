package metrics

import (
	"time"

	"regles-hq/calcul/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CompileMetrics tracks loading and compilation of rule sources.
//
// Metrics:
//   - calcul_engine_compilations_total: Compilations by status
//   - calcul_engine_compile_duration_seconds: Parse, link and compile duration
//   - calcul_engine_rules_loaded: Rules in the current program
//   - calcul_engine_reloads_total: Hot reloads by status
type CompileMetrics struct {
	compilationsTotal *prometheus.CounterVec
	compileDuration   prometheus.Histogram
	rulesLoaded       prometheus.Gauge
	reloadsTotal      *prometheus.CounterVec
}

// NewCompileMetrics creates and registers compile metrics with the provided registry.
func NewCompileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompileMetrics {
	cm := &CompileMetrics{
		compilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compilations_total",
				Help:      "Total number of rule source compilations",
			},
			[]string{"status"},
		),

		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compile_duration_seconds",
				Help:      "Duration of parsing, linking and compiling rule sources in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to 1.6s
			},
		),

		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_loaded",
				Help:      "Number of rules in the current program",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reloads_total",
				Help:      "Total number of hot reloads",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		cm.compilationsTotal,
		cm.compileDuration,
		cm.rulesLoaded,
		cm.reloadsTotal,
	)

	return cm
}

// RecordCompile records a compilation. rules is only used on success.
func (cm *CompileMetrics) RecordCompile(status string, duration time.Duration, rules int) {
	cm.compilationsTotal.WithLabelValues(status).Inc()
	cm.compileDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		cm.rulesLoaded.Set(float64(rules))
	}
}

// RecordReload records a hot reload attempt.
func (cm *CompileMetrics) RecordReload(status string) {
	cm.reloadsTotal.WithLabelValues(status).Inc()
}
