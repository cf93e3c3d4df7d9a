// Package middleware provides metrics for HTTP middleware components.
package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRateLimitRequests     = "rate_limit_requests_total"
	MetricRateLimitBlocked      = "rate_limit_blocked_total"
	MetricRateLimitRedisErrors  = "rate_limit_redis_errors_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPResponseSizeBytes = "http_response_size_bytes"
	MetricSubmissionsTotal      = "form_submissions_total"
)

// Metrics contains Prometheus metrics for middleware and pipeline operations.
// All operations are thread-safe.
type Metrics struct {
	rateLimitRequests    *prometheus.CounterVec
	rateLimitBlocked     *prometheus.CounterVec
	rateLimitRedisErrors prometheus.Counter
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	httpResponseSize     *prometheus.HistogramVec
	submissionsTotal     *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rateLimitRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRateLimitRequests,
				Help: "Total number of rate limit checks by endpoint",
			},
			[]string{"endpoint"},
		),
		rateLimitBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRateLimitBlocked,
				Help: "Total number of rate limit violations (blocked requests) by endpoint",
			},
			[]string{"endpoint"},
		),
		rateLimitRedisErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricRateLimitRedisErrors,
				Help: "Total number of Redis errors during rate limiting (fail-open events)",
			},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPResponseSizeBytes,
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path", "status"},
		),
		submissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSubmissionsTotal,
				Help: "Total number of contact form submissions by pipeline outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rateLimitRequests,
		m.rateLimitBlocked,
		m.rateLimitRedisErrors,
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.httpResponseSize,
		m.submissionsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RateLimitRequestInc increments the rate limit check counter for an endpoint.
func (m *Metrics) RateLimitRequestInc(endpoint string) {
	m.rateLimitRequests.WithLabelValues(endpoint).Inc()
}

// RateLimitBlockedInc increments the rate limit violation counter for an endpoint.
func (m *Metrics) RateLimitBlockedInc(endpoint string) {
	m.rateLimitBlocked.WithLabelValues(endpoint).Inc()
}

// RateLimitRedisErrorInc increments the Redis fail-open counter.
func (m *Metrics) RateLimitRedisErrorInc() {
	m.rateLimitRedisErrors.Inc()
}

// SubmissionOutcomeInc increments the submission counter for a pipeline
// outcome (e.g. "delivered", "honeypot", "verification_failed").
func (m *Metrics) SubmissionOutcomeInc(outcome string) {
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records duration and size for one completed request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, durationSeconds float64, responseBytes float64) {
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpResponseSize.WithLabelValues(method, path, status).Observe(responseBytes)
}
