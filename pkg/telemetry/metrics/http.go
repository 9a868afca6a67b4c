package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"promptstudio/aegis/pkg/config"
)

// HTTPMetrics tracks API requests.
//
// Metrics:
//   - aegis_http_requests_total: requests by method, route and status code
//   - aegis_http_request_duration_seconds: request duration by route
//   - aegis_http_rejections_total: requests refused by auth or rate limiting
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "rejections_total",
				Help:      "API requests refused before reaching a handler",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration, hm.rejections)
	return hm
}

// RecordRequest records a completed request.
func (hm *HTTPMetrics) RecordRequest(method, route string, status int, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	hm.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRejection counts a refused request. reason is a fixed string such
// as "unauthorized" or "rate_limited".
func (hm *HTTPMetrics) RecordRejection(reason string) {
	hm.rejections.WithLabelValues(reason).Inc()
}
