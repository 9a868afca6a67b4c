package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety"
)

// CheckMetrics tracks safety check outcomes.
//
// Metrics:
//   - aegis_safety_checks_total: checks by outcome (passed, failed, blocked)
//   - aegis_safety_check_duration_seconds: check duration histogram
//   - aegis_safety_check_score: score histogram
//   - aegis_safety_issues_total: issues by type and severity
//   - aegis_safety_truncated_total: checks whose input exceeded the bound
//   - aegis_safety_detector_duration_seconds: detector duration by category
//   - aegis_safety_detector_failures_total: detector panics by category
//   - aegis_safety_sanitizations_total / _replacements_total
type CheckMetrics struct {
	checksTotal      *prometheus.CounterVec
	checkDuration    prometheus.Histogram
	score            prometheus.Histogram
	issuesTotal      *prometheus.CounterVec
	truncatedTotal   prometheus.Counter
	detectorDuration *prometheus.HistogramVec
	detectorFailures *prometheus.CounterVec
	sanitizations    prometheus.Counter
	replacements     prometheus.Counter
}

// NewCheckMetrics creates and registers check metrics.
func NewCheckMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CheckMetrics {
	cm := &CheckMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "checks_total",
				Help:      "Total number of safety checks by outcome",
			},
			[]string{"outcome"},
		),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "check_duration_seconds",
			Help:      "Duration of safety checks in seconds",
			Buckets:   cfg.CheckDurationBuckets,
		}),
		score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "check_score",
			Help:      "Distribution of safety scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		issuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "issues_total",
				Help:      "Total number of issues found by type and severity",
			},
			[]string{"type", "severity"},
		),
		truncatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "truncated_total",
			Help:      "Checks whose content exceeded the input bound",
		}),
		detectorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "detector_duration_seconds",
				Help:      "Duration of individual detectors in seconds",
				Buckets:   cfg.CheckDurationBuckets,
			},
			[]string{"category"},
		),
		detectorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "detector_failures_total",
				Help:      "Detectors that failed and were skipped",
			},
			[]string{"category"},
		),
		sanitizations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "sanitizations_total",
			Help:      "Sanitize operations that changed content",
		}),
		replacements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "replacements_total",
			Help:      "Spans replaced by the sanitizer",
		}),
	}

	registry.MustRegister(
		cm.checksTotal,
		cm.checkDuration,
		cm.score,
		cm.issuesTotal,
		cm.truncatedTotal,
		cm.detectorDuration,
		cm.detectorFailures,
		cm.sanitizations,
		cm.replacements,
	)

	return cm
}

// RecordCheck records a completed check.
func (cm *CheckMetrics) RecordCheck(result *safety.CheckResult, elapsed time.Duration) {
	cm.checksTotal.WithLabelValues(outcome(result)).Inc()
	cm.checkDuration.Observe(elapsed.Seconds())
	cm.score.Observe(float64(result.Score))
	for _, is := range result.Issues {
		cm.issuesTotal.WithLabelValues(string(is.Type), is.Severity.String()).Inc()
	}
	if result.Truncated {
		cm.truncatedTotal.Inc()
	}
}

// RecordDetector records one detector run.
func (cm *CheckMetrics) RecordDetector(category safety.Category, elapsed time.Duration, _ int) {
	cm.detectorDuration.WithLabelValues(string(category)).Observe(elapsed.Seconds())
}

// RecordDetectorFailure counts a failed detector.
func (cm *CheckMetrics) RecordDetectorFailure(category safety.Category) {
	cm.detectorFailures.WithLabelValues(string(category)).Inc()
}

// RecordSanitization counts a sanitize call with n replacements. Calls
// that changed nothing are not counted.
func (cm *CheckMetrics) RecordSanitization(n int) {
	if n <= 0 {
		return
	}
	cm.sanitizations.Inc()
	cm.replacements.Add(float64(n))
}

func outcome(result *safety.CheckResult) string {
	switch {
	case result.Blocked:
		return "blocked"
	case result.Passed:
		return "passed"
	default:
		return "failed"
	}
}
