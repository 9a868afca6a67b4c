package safety

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"promptstudio/aegis/pkg/safety/patterns"
)

// TruncatedIssueID identifies the notice added when content exceeds the
// input bound.
const TruncatedIssueID = "security:input_truncated"

// DefaultMaxInputLength is the number of bytes analyzed when Config leaves
// MaxInputLength at zero.
const DefaultMaxInputLength = 100_000

// Observer receives engine events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// CheckCompleted is called once per check with the final result.
	CheckCompleted(result *CheckResult, elapsed time.Duration)

	// DetectorCompleted is called after each detector that ran to completion.
	DetectorCompleted(category Category, elapsed time.Duration, issues int)

	// DetectorFailed is called when a detector panicked.
	DetectorFailed(category Category, err error)
}

// Config configures an Engine. The zero value is usable.
type Config struct {
	// Registry supplies the patterns. Default: patterns.Default()
	Registry *patterns.Registry

	// Policy decides pass and block. Default: DefaultPolicy()
	Policy *Policy

	// MaxInputLength bounds the bytes analyzed per check. Zero means
	// DefaultMaxInputLength and a negative value disables the bound.
	MaxInputLength int

	// Sequential runs detectors one after another instead of concurrently.
	Sequential bool

	// Detectors replaces the built-in detector of each category it names.
	Detectors map[Category]Detector

	Observer Observer
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// Engine runs safety checks. It is safe for concurrent use.
type Engine struct {
	registry   atomic.Pointer[patterns.Registry]
	policy     Policy
	maxInput   int
	sequential bool
	detectors  map[Category]Detector
	observer   Observer
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		policy:     DefaultPolicy(),
		maxInput:   cfg.MaxInputLength,
		sequential: cfg.Sequential,
		detectors:  make(map[Category]Detector, len(builtinDetectors)),
		observer:   cfg.Observer,
		tracer:     cfg.Tracer,
		logger:     cfg.Logger,
	}
	for c, d := range builtinDetectors {
		e.detectors[c] = d
	}
	for c, d := range cfg.Detectors {
		if d != nil {
			e.detectors[c] = d
		}
	}
	if cfg.Policy != nil {
		e.policy = *cfg.Policy
	}
	if e.maxInput == 0 {
		e.maxInput = DefaultMaxInputLength
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("aegis/safety")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	reg := cfg.Registry
	if reg == nil {
		reg = patterns.Default()
	}
	e.registry.Store(reg)
	return e
}

// Registry returns the active pattern registry.
func (e *Engine) Registry() *patterns.Registry {
	return e.registry.Load()
}

// SetRegistry replaces the pattern registry. Checks already running keep
// the registry they started with.
func (e *Engine) SetRegistry(reg *patterns.Registry) {
	if reg == nil {
		return
	}
	e.registry.Store(reg)
}

// Policy returns the engine's pass/block policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

type detectorRun struct {
	category Category
	issues   []Issue
	err      error
}

// Check analyzes content with the checks selected in opts. It never fails:
// a detector that panics is logged, reported to the observer and left out
// of ChecksPerformed.
func (e *Engine) Check(ctx context.Context, content string, opts Options) *CheckResult {
	started := time.Now()
	reg := e.registry.Load()

	ctx, span := e.tracer.Start(ctx, "safety.check", trace.WithAttributes(
		attribute.Int("safety.content_bytes", len(content)),
		attribute.Bool("safety.auto_sanitize", opts.AutoSanitize),
		attribute.Bool("safety.drift", opts.Drift),
	))
	defer span.End()

	result := &CheckResult{
		CheckID:         uuid.New().String(),
		Issues:          []Issue{},
		Recommendations: []string{},
		ChecksPerformed: []Category{},
	}

	scanned := content
	if e.maxInput > 0 && len(content) > e.maxInput {
		scanned = truncateUTF8(content, e.maxInput)
		result.Truncated = true
	}

	for _, run := range e.runDetectors(ctx, reg, scanned, opts) {
		if run.err != nil {
			e.logger.WarnContext(ctx, "detector failed",
				"check_id", result.CheckID,
				"category", string(run.category),
				"error", run.err,
			)
			if e.observer != nil {
				e.observer.DetectorFailed(run.category, run.err)
			}
			continue
		}
		result.ChecksPerformed = append(result.ChecksPerformed, run.category)
		result.Issues = append(result.Issues, run.issues...)
	}

	if opts.Drift {
		drift := AnalyzeDrift(reg, scanned, opts.BaselineContext)
		result.Drift = &drift
		result.ChecksPerformed = append(result.ChecksPerformed, CategoryDrift)
		if is, ok := driftIssue(drift); ok {
			result.Issues = append(result.Issues, is)
		}
	}

	if result.Truncated {
		result.Issues = append(result.Issues, Issue{
			ID:          TruncatedIssueID,
			Type:        CategorySecurity,
			Severity:    SeverityInfo,
			Title:       "Content truncated for scanning",
			Description: fmt.Sprintf("Only the first %d of %d bytes were analyzed", len(scanned), len(content)),
			Suggestion:  "Split large content into smaller pieces so all of it is checked",
		})
	}

	result.Score = CalculateScore(result.Issues)
	result.Blocked, result.Passed = e.policy.Evaluate(result.Issues, result.Score)
	result.RiskLevel = RiskLevel(result.Issues)
	result.Recommendations = Recommendations(result.Issues)

	if opts.AutoSanitize && Fixable(result.Issues) {
		sanitized := Sanitize(content, result.Issues)
		result.SanitizedContent = &sanitized
	}

	elapsed := time.Since(started)
	result.ProcessingTimeMs = float64(elapsed.Microseconds()) / 1000

	span.SetAttributes(
		attribute.String("safety.check_id", result.CheckID),
		attribute.Int("safety.score", result.Score),
		attribute.Int("safety.issues", len(result.Issues)),
		attribute.Bool("safety.blocked", result.Blocked),
		attribute.String("safety.risk_level", result.RiskLevel),
	)
	if result.Blocked {
		span.SetStatus(codes.Error, "content blocked")
	}

	e.logger.DebugContext(ctx, "safety check completed",
		"check_id", result.CheckID,
		"score", result.Score,
		"issues", len(result.Issues),
		"blocked", result.Blocked,
		"duration_ms", result.ProcessingTimeMs,
	)
	if e.observer != nil {
		e.observer.CheckCompleted(result, elapsed)
	}
	return result
}

// Sanitize checks content with auto-sanitize forced on and returns the
// sanitized text along with the result. Content with nothing to fix is
// returned unchanged.
func (e *Engine) Sanitize(ctx context.Context, content string, opts Options) (string, *CheckResult) {
	opts.AutoSanitize = true
	result := e.Check(ctx, content, opts)
	if result.SanitizedContent == nil {
		return content, result
	}
	return *result.SanitizedContent, result
}

// runDetectors runs the enabled detectors and returns their outcomes in
// category order regardless of completion order.
func (e *Engine) runDetectors(ctx context.Context, reg *patterns.Registry, content string, opts Options) []detectorRun {
	var runs []detectorRun
	for _, c := range patterns.DetectorCategories {
		if opts.Enabled(c) {
			runs = append(runs, detectorRun{category: c})
		}
	}

	if e.sequential || len(runs) < 2 {
		for i := range runs {
			runs[i].issues, runs[i].err = e.runDetector(ctx, reg, runs[i].category, content)
		}
		return runs
	}

	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func(r *detectorRun) {
			defer wg.Done()
			r.issues, r.err = e.runDetector(ctx, reg, r.category, content)
		}(&runs[i])
	}
	wg.Wait()
	return runs
}

func (e *Engine) runDetector(ctx context.Context, reg *patterns.Registry, c Category, content string) (issues []Issue, err error) {
	_, span := e.tracer.Start(ctx, "safety.detect."+string(c))
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			issues = nil
			err = &DetectorError{Category: c, Value: r}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if e.observer != nil {
			e.observer.DetectorCompleted(c, time.Since(started), len(issues))
		}
		span.SetAttributes(attribute.Int("safety.issues", len(issues)))
		span.End()
	}()

	detect, ok := e.detectors[c]
	if !ok {
		panic(fmt.Sprintf("no detector registered for %q", c))
	}
	return detect(reg, content), nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a character.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
