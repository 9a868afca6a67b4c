// Package service assembles the safety engine with its supporting
// components (pattern registry and hot reload, telemetry, audit recording
// and retention) from a configuration. The HTTP API, the MCP server and the
// CLI all run checks through a Service.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/audit/recorder"
	"promptstudio/aegis/pkg/audit/retention"
	"promptstudio/aegis/pkg/audit/storage"
	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/safety/patterns"
	"promptstudio/aegis/pkg/telemetry"
	"promptstudio/aegis/pkg/telemetry/health"
	"promptstudio/aegis/pkg/telemetry/logging"
)

// Options tunes New beyond the configuration.
type Options struct {
	// LogWriter overrides the log destination (default os.Stderr).
	LogWriter io.Writer

	// DisableAudit skips audit storage even when the configuration enables
	// it. One-shot commands use it to avoid opening the database.
	DisableAudit bool

	// SpanExporter replaces the OTLP exporter when tracing is enabled.
	SpanExporter sdktrace.SpanExporter
}

// Service is the assembled safety service.
type Service struct {
	Config    *config.Config
	Telemetry *telemetry.Telemetry
	Engine    *safety.Engine

	// Store, Recorder and Pruner are nil when auditing is disabled.
	Store    audit.Storage
	Recorder *recorder.Recorder
	Pruner   *retention.Pruner

	base    safety.Options
	logger  *slog.Logger
	watcher *patterns.Watcher

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New builds every component named by cfg. Nothing runs in the background
// until Start is called.
func New(cfg *config.Config, info health.VersionInfo, opts Options) (*Service, error) {
	reg, err := patterns.Load(cfg.Patterns.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	tel, err := telemetry.New(cfg.Telemetry, info, telemetry.Options{
		Registry:     reg,
		LogWriter:    opts.LogWriter,
		SpanExporter: opts.SpanExporter,
	})
	if err != nil {
		return nil, err
	}
	tel.Metrics.SetPatternEntries(reg)

	engine := safety.NewEngine(EngineConfig(cfg.Safety, reg, tel))

	s := &Service{
		Config:    cfg,
		Telemetry: tel,
		Engine:    engine,
		base:      OptionsFromConfig(cfg.Safety),
		logger:    slog.Default().With("component", "service"),
	}

	tel.Health.RegisterCheck("patterns", health.PatternsCheck(engine.Registry))

	if cfg.Audit.Enabled && !opts.DisableAudit {
		store, err := storage.New(cfg.Audit)
		if err != nil {
			return nil, s.abort(fmt.Errorf("failed to open audit storage: %w", err))
		}
		s.Store = store
		s.Recorder = recorder.New(store, cfg.Audit.Recorder,
			recorder.WithDropHandler(tel.Metrics.RecordAuditDropped))
		s.Pruner = retention.NewPruner(store, cfg.Audit.Retention)
		tel.Health.RegisterCheck("audit", health.PingCheck("audit", store))
	}

	if cfg.Patterns.Watch && cfg.Patterns.File != "" {
		w, err := patterns.NewWatcher(cfg.Patterns.File, cfg.Patterns.Debounce,
			slog.Default().With("component", "patterns.watcher"))
		if err != nil {
			return nil, s.abort(fmt.Errorf("failed to create pattern watcher: %w", err))
		}
		s.watcher = w
	}

	s.logger.Info("safety service initialized",
		"patterns", reg.Len(),
		"pattern_sources", reg.Sources(),
		"audit", s.Store != nil,
		"watch", s.watcher != nil,
	)
	return s, nil
}

// OptionsFromConfig returns the check options selected by cfg.
func OptionsFromConfig(cfg config.SafetyConfig) safety.Options {
	return safety.Options{
		Toxicity:     cfg.Detectors.Toxicity,
		PII:          cfg.Detectors.PII,
		Injection:    cfg.Detectors.Injection,
		Bias:         cfg.Detectors.Bias,
		Security:     cfg.Detectors.Security,
		AutoSanitize: cfg.AutoSanitize,
	}
}

// EngineConfig returns the engine configuration for cfg, observed by the
// telemetry components when tel is not nil.
func EngineConfig(cfg config.SafetyConfig, reg *patterns.Registry, tel *telemetry.Telemetry) safety.Config {
	ec := safety.Config{
		Registry: reg,
		Policy: &safety.Policy{
			PassThreshold:   cfg.PassThreshold,
			BlockOnCritical: cfg.BlockOnCritical,
		},
		MaxInputLength: cfg.MaxInputLength,
		Sequential:     !cfg.Parallel,
		Logger:         slog.Default().With("component", "safety.engine"),
	}
	if tel != nil {
		ec.Observer = tel.Metrics
		ec.Tracer = tel.Tracer.Tracer()
	}
	return ec
}

// Start launches the background components: the pattern watcher and the
// retention scheduler. They stop when ctx is cancelled or Close is called.
func (s *Service) Start(ctx context.Context) error {
	if s.Pruner != nil && s.Config.Audit.Retention.PruneSchedule != "" {
		if err := s.Pruner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention scheduler: %w", err)
		}
	}

	if s.watcher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := s.watcher.Watch(ctx, s.applyRegistry, func(err error) {
				s.Telemetry.Metrics.RecordPatternReload(nil, err)
			})
			if err != nil {
				s.logger.Error("pattern watcher exited", "error", err)
			}
		}()
	}
	return nil
}

// ReloadPatterns reloads the configured pattern source. On failure the
// active registry is kept.
func (s *Service) ReloadPatterns() error {
	reg, err := patterns.Load(s.Config.Patterns.File)
	if err != nil {
		s.Telemetry.Metrics.RecordPatternReload(nil, err)
		return err
	}
	s.applyRegistry(reg)
	return nil
}

func (s *Service) applyRegistry(reg *patterns.Registry) {
	s.Engine.SetRegistry(reg)
	s.Telemetry.Metrics.RecordPatternReload(reg, nil)
}

// Options returns the default check options.
func (s *Service) Options() safety.Options {
	return s.base
}

// Check runs a safety check with the default options adjusted by
// overrides, records it for audit and returns the result.
func (s *Service) Check(ctx context.Context, content string, overrides *safety.OptionOverrides, source audit.Source) *safety.CheckResult {
	opts := s.base
	if overrides != nil {
		opts = overrides.Apply(opts)
	}
	return s.run(ctx, content, opts, source)
}

// Sanitize is Check with auto-sanitize forced on. It returns the sanitized
// text, which is content itself when nothing needed fixing.
func (s *Service) Sanitize(ctx context.Context, content string, overrides *safety.OptionOverrides, source audit.Source) (string, *safety.CheckResult) {
	opts := s.base
	if overrides != nil {
		opts = overrides.Apply(opts)
	}
	opts.AutoSanitize = true

	result := s.run(ctx, content, opts, source)
	if result.SanitizedContent == nil {
		return content, result
	}
	return *result.SanitizedContent, result
}

func (s *Service) run(ctx context.Context, content string, opts safety.Options, source audit.Source) *safety.CheckResult {
	ctx = logging.WithSource(ctx, string(source))
	result := s.Engine.Check(ctx, content, opts)

	if result.SanitizedContent != nil {
		s.Telemetry.Metrics.RecordSanitization(len(safety.PlanReplacements(content, result.Issues)))
	}

	if s.Recorder != nil {
		if _, err := s.Recorder.Record(ctx, result, content, source); err != nil {
			s.logger.WarnContext(ctx, "audit record not queued", "check_id", result.CheckID, "error", err)
		}
	}
	return result
}

// Close stops background work, flushes pending audit records and
// telemetry, and closes the audit store.
func (s *Service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("pattern watcher: %w", err))
			}
		}
		s.wg.Wait()

		if s.Pruner != nil {
			s.Pruner.Stop()
		}
		if err := s.closeStorage(); err != nil {
			errs = append(errs, err)
		}
		if err := s.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// abort releases what New built before failing with err.
func (s *Service) abort(err error) error {
	if cerr := s.closeStorage(); cerr != nil {
		s.logger.Warn("failed to close audit storage", "error", cerr)
	}
	timeout := s.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if terr := s.Telemetry.Shutdown(ctx); terr != nil {
		s.logger.Warn("failed to shut down telemetry", "error", terr)
	}
	return err
}

func (s *Service) closeStorage() error {
	var errs []error
	if s.Recorder != nil {
		if err := s.Recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit recorder: %w", err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
