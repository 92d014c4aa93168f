// Package metrics provides Prometheus metrics collection for calcul.
//
// # Metrics Categories
//
//   - Engine Metrics: rule computations, duration, errors, situation changes
//   - Compile Metrics: compilations, compile duration, rules loaded, reloads
//   - Cache Metrics: value cache hits, misses, entries and resets
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng, err := engine.New(ns, engine.DefaultConfig(), logger, collector)
//
// A nil *Collector records nothing, which is what tests and library users
// without metrics pass.
//
// # Exposition
//
// Handler serves the registry over HTTP while `calcul eval --watch` runs.
// Dump writes the text exposition format for `calcul eval --metrics`.
// Snapshot returns the gathered series as flat samples.
//
// # Cardinality Management
//
// Rule names become label values. Past DefaultMaxCardinality distinct rules,
// further rules are aggregated into "other".
package metrics
