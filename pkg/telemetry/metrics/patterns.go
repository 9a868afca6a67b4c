package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety/patterns"
)

// PatternMetrics tracks the pattern registry.
//
// Metrics:
//   - aegis_patterns_reloads_total: reloads by result (success, failure)
//   - aegis_patterns_entries: active entries per category
//   - aegis_patterns_last_reload_timestamp_seconds: time of the last good load
type PatternMetrics struct {
	reloadsTotal *prometheus.CounterVec
	entries      *prometheus.GaugeVec
	lastReload   prometheus.Gauge
}

// NewPatternMetrics creates and registers pattern metrics.
func NewPatternMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PatternMetrics {
	pm := &PatternMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "patterns",
				Name:      "reloads_total",
				Help:      "Pattern pack reloads by result",
			},
			[]string{"result"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "patterns",
				Name:      "entries",
				Help:      "Active pattern entries per category",
			},
			[]string{"category"},
		),
		lastReload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "patterns",
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix time the active registry was built",
		}),
	}

	registry.MustRegister(pm.reloadsTotal, pm.entries, pm.lastReload)
	return pm
}

// RecordReload counts a reload attempt.
func (pm *PatternMetrics) RecordReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	pm.reloadsTotal.WithLabelValues(result).Inc()
}

// SetEntries publishes the entry count of every category in reg.
func (pm *PatternMetrics) SetEntries(reg *patterns.Registry) {
	counts := reg.Counts()
	for _, c := range patterns.AllCategories {
		pm.entries.WithLabelValues(string(c)).Set(float64(counts[c]))
	}
	pm.lastReload.Set(float64(reg.LoadedAt().Unix()))
}
