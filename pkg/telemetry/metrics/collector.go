package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/safety/patterns"
)

// maxRouteCardinality bounds the distinct HTTP route labels.
const maxRouteCardinality = 200

// Collector owns every Prometheus metric exported by Aegis. It implements
// safety.Observer so an Engine reports checks and detector runs directly.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	checkMetrics   *CheckMetrics
	patternMetrics *PatternMetrics
	httpMetrics    *HTTPMetrics

	auditDropped prometheus.Counter

	routeLimiter *CardinalityLimiter
}

var _ safety.Observer = (*Collector)(nil)

// NewCollector creates a collector and registers its metrics. A nil
// registry gets a fresh one.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	engine := safety.NewEngine(safety.Config{Observer: collector})
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.CheckDurationBuckets) == 0 {
		cfg.CheckDurationBuckets = config.DefaultCheckDurationBuckets
	}

	c := &Collector{
		config:       cfg,
		registry:     registry,
		routeLimiter: NewCardinalityLimiter(maxRouteCardinality),
	}

	c.checkMetrics = NewCheckMetrics(&cfg, registry)
	c.patternMetrics = NewPatternMetrics(&cfg, registry)
	c.httpMetrics = NewHTTPMetrics(&cfg, registry)

	c.auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "audit",
		Name:      "records_dropped_total",
		Help:      "Audit records dropped because the recorder buffer was full",
	})
	registry.MustRegister(c.auditDropped)

	return c
}

// CheckCompleted records the outcome of a check.
func (c *Collector) CheckCompleted(result *safety.CheckResult, elapsed time.Duration) {
	if !c.config.Enabled || result == nil {
		return
	}
	c.checkMetrics.RecordCheck(result, elapsed)
}

// DetectorCompleted records a detector run.
func (c *Collector) DetectorCompleted(category safety.Category, elapsed time.Duration, issues int) {
	if !c.config.Enabled {
		return
	}
	c.checkMetrics.RecordDetector(category, elapsed, issues)
}

// DetectorFailed records a detector that panicked.
func (c *Collector) DetectorFailed(category safety.Category, _ error) {
	if !c.config.Enabled {
		return
	}
	c.checkMetrics.RecordDetectorFailure(category)
}

// RecordSanitization records a sanitize call that applied n replacements.
func (c *Collector) RecordSanitization(n int) {
	if !c.config.Enabled {
		return
	}
	c.checkMetrics.RecordSanitization(n)
}

// RecordPatternReload records a pattern pack reload. On success the
// per-category entry gauge is refreshed from reg.
func (c *Collector) RecordPatternReload(reg *patterns.Registry, err error) {
	if !c.config.Enabled {
		return
	}
	c.patternMetrics.RecordReload(err)
	if err == nil && reg != nil {
		c.patternMetrics.SetEntries(reg)
	}
}

// SetPatternEntries publishes the entry counts of the active registry.
func (c *Collector) SetPatternEntries(reg *patterns.Registry) {
	if !c.config.Enabled || reg == nil {
		return
	}
	c.patternMetrics.SetEntries(reg)
}

// RecordAuditDropped counts an audit record lost to a full buffer.
func (c *Collector) RecordAuditDropped() {
	if !c.config.Enabled {
		return
	}
	c.auditDropped.Inc()
}

// RecordHTTPRequest records an API request. Routes beyond the cardinality
// limit are reported as "other".
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.routeLimiter.Allow(fmt.Sprintf("%s %s", method, route)) {
		route = "other"
	}
	c.httpMetrics.RecordRequest(method, route, status, duration)
}

// RecordRejection counts a request refused by authentication or rate
// limiting.
func (c *Collector) RecordRejection(reason string) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.RecordRejection(reason)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
