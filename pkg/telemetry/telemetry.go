package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety/patterns"
	"promptstudio/aegis/pkg/telemetry/health"
	"promptstudio/aegis/pkg/telemetry/logging"
	"promptstudio/aegis/pkg/telemetry/metrics"
	"promptstudio/aegis/pkg/telemetry/tracing"
)

// Telemetry holds the process-wide observability components.
type Telemetry struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Health  *health.Checker
	Version health.VersionInfo
}

// Options tunes New beyond the configuration file.
type Options struct {
	// Registry supplies the PII patterns used for log redaction.
	Registry *patterns.Registry

	// LogWriter overrides the log destination (default os.Stderr).
	LogWriter io.Writer

	// SpanExporter replaces the OTLP exporter when tracing is enabled.
	SpanExporter sdktrace.SpanExporter
}

// New builds the logger, metrics collector, tracer and health checker
// from cfg. The logger is installed as the slog default.
func New(cfg config.TelemetryConfig, info health.VersionInfo, opts Options) (*Telemetry, error) {
	logOpts := logging.OptionsFromConfig(cfg.Logging)
	logOpts.Registry = opts.Registry
	logOpts.Writer = opts.LogWriter
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefault()

	var tracer *tracing.Tracer
	if cfg.Tracing.Enabled && opts.SpanExporter != nil {
		tracer, err = tracing.NewWithExporter(cfg.Tracing, info.Version, opts.SpanExporter)
	} else {
		tracer, err = tracing.New(cfg.Tracing, info.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(cfg.Metrics, nil),
		Tracer:  tracer,
		Health:  health.New(cfg.Health.CheckTimeout),
		Version: info,
	}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Tracer != nil {
		if err := t.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
