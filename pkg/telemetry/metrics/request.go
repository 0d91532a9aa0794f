package metrics

import (
	"time"

	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks completed relay requests.
//
// Metrics:
//   - mercator_relay_requests_total: requests by provider, model, status, cache status
//   - mercator_relay_request_duration_seconds: end-to-end latency by cache status
//   - mercator_relay_request_attempts: dispatch attempts per request
//   - mercator_relay_request_tokens_total: tokens exchanged upstream
type RequestMetrics struct {
	requestsTotal *prometheus.CounterVec

	requestDuration *prometheus.HistogramVec

	attempts prometheus.Histogram

	tokensTotal *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of completion requests handled",
			},
			[]string{"provider", "model", "status", "cache"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end duration of completion requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"cache"},
		),

		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_attempts",
				Help:      "Number of provider dispatch attempts per request",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_tokens_total",
				Help:      "Total number of tokens exchanged with providers",
			},
			[]string{"provider", "model"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.attempts,
		rm.tokensTotal,
	)

	return rm
}

// RecordRequest records one completed request.
func (rm *RequestMetrics) RecordRequest(provider, model, status, cacheStatus string, duration time.Duration, attempts int) {
	rm.requestsTotal.WithLabelValues(provider, model, status, cacheStatus).Inc()
	rm.requestDuration.WithLabelValues(cacheStatus).Observe(duration.Seconds())
	rm.attempts.Observe(float64(attempts))
}

// RecordTokens adds the tokens of an upstream exchange.
func (rm *RequestMetrics) RecordTokens(provider, model string, tokens int) {
	if tokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, model).Add(float64(tokens))
	}
}
