// Package health provides liveness, readiness and version endpoints.
//
// # Endpoints
//
//   - /health: liveness, answers 200 while the process runs
//   - /ready: readiness, runs the registered component checks
//   - /version: build information
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("patterns", health.PatternsCheck(engine.Registry))
//	checker.RegisterCheck("audit", health.PingCheck("audit store", store))
//	health.Mount(mux, cfg.Telemetry.Health, checker, health.NewVersionInfo(version, commit, date))
//
// Readiness is "ready" when every check passes, "degraded" when some fail
// and "unhealthy" when all fail. Anything but ready answers 503.
package health
