// Package tracing provides OpenTelemetry tracing for Aegis.
//
// # Overview
//
// Spans are exported over OTLP gRPC. The safety engine opens a
// "safety.check" span per check with a "safety.detect.<category>" child
// per detector. The HTTP API wraps each request in a server span that
// continues any incoming W3C trace context:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling Strategies
//
//   - always: sample all traces
//   - never: sample no traces
//   - ratio: sample sample_ratio of traces by trace ID
//
// All samplers respect the parent's sampling decision.
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	engine := safety.NewEngine(safety.Config{Tracer: tracer.Tracer()})
package tracing
