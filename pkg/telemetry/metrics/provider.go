package metrics

import (
	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks provider dispatch and breaker health.
//
// Metrics:
//   - mercator_relay_provider_breaker_state: 0=closed, 1=half-open, 2=open
//   - mercator_relay_provider_breaker_transitions_total: transitions by from/to state
//   - mercator_relay_provider_latency_seconds: latency of successful attempts
//   - mercator_relay_provider_attempts_total: attempts by outcome kind
//   - mercator_relay_provider_errors_total: failed attempts by kind
type ProviderMetrics struct {
	breakerState *prometheus.GaugeVec

	transitions *prometheus.CounterVec

	latency *prometheus.HistogramVec

	attempts *prometheus.CounterVec

	errors *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_breaker_state",
				Help:      "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"provider", "from", "to"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Latency of successful provider attempts in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "model"},
		),

		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_attempts_total",
				Help:      "Total number of dispatch attempts by outcome kind",
			},
			[]string{"provider", "kind"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of failed provider attempts by kind",
			},
			[]string{"provider", "kind"},
		),
	}

	registry.MustRegister(
		pm.breakerState,
		pm.transitions,
		pm.latency,
		pm.attempts,
		pm.errors,
	)

	return pm
}

// breakerValue maps a state onto the gauge scale, ordered by severity.
func breakerValue(s circuitbreaker.State) float64 {
	switch s {
	case circuitbreaker.StateHalfOpen:
		return 1
	case circuitbreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// SetBreakerState sets the breaker gauge of a provider.
func (pm *ProviderMetrics) SetBreakerState(provider string, state circuitbreaker.State) {
	pm.breakerState.WithLabelValues(provider).Set(breakerValue(state))
}

// RecordTransition counts one breaker transition.
func (pm *ProviderMetrics) RecordTransition(provider, from, to string) {
	pm.transitions.WithLabelValues(provider, from, to).Inc()
}

// RecordLatency records the latency of a successful attempt.
func (pm *ProviderMetrics) RecordLatency(provider, model string, latencySeconds float64) {
	pm.latency.WithLabelValues(provider, model).Observe(latencySeconds)
}

// RecordAttempt counts one attempt. kind is "none" for a success.
func (pm *ProviderMetrics) RecordAttempt(provider, kind string) {
	pm.attempts.WithLabelValues(provider, kind).Inc()
}

// RecordError counts one failed attempt.
//
// Kinds:
//   - "timeout": the attempt or request deadline fired
//   - "rate_limited": the provider answered 429
//   - "invalid_model": the provider does not know the model
//   - "transient": 5xx or another retryable upstream failure
//   - "permanent": auth, parse or request errors
//   - "connection": dial or transport failure
func (pm *ProviderMetrics) RecordError(provider, kind string) {
	pm.errors.WithLabelValues(provider, kind).Inc()
}
