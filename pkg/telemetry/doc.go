// Package telemetry bundles the observability stack of the Aegis service.
//
// # Components
//
//   - logging: structured logging with PII redaction
//   - metrics: Prometheus metrics
//   - tracing: OpenTelemetry tracing
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	tel, err := telemetry.New(cfg.Telemetry, info)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	engine := safety.NewEngine(safety.Config{
//	    Observer: tel.Metrics,
//	    Tracer:   tel.Tracer.Tracer(),
//	    Logger:   tel.Logger.Slog(),
//	})
package telemetry
