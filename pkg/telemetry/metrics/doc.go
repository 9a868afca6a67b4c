// Package metrics provides Prometheus metrics for the Aegis safety service.
//
// # Metrics Categories
//
//   - Check metrics: outcome counts, duration, score, issues by type and
//     severity, truncations, per-detector durations and failures,
//     sanitizations
//   - Pattern metrics: reload results, active entries per category
//   - HTTP metrics: request counts and durations per route
//   - Audit metrics: records dropped by the recorder
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	engine := safety.NewEngine(safety.Config{Observer: collector})
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Prometheus Endpoint
//
//	# HELP aegis_safety_checks_total Total number of safety checks by outcome
//	# TYPE aegis_safety_checks_total counter
//	aegis_safety_checks_total{outcome="blocked"} 12
//	aegis_safety_checks_total{outcome="passed"} 1034
package metrics
