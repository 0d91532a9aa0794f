package metrics

import (
	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CostMetrics tracks the USD cost of upstream exchanges. Cache hits cost
// nothing and are not recorded.
//
// Metrics:
//   - mercator_relay_cost_total: total cost by provider and model
//   - mercator_relay_cost_per_request: cost distribution per request
//   - mercator_relay_cost_estimated_total: requests priced from estimated tokens
type CostMetrics struct {
	costTotal *prometheus.CounterVec

	costPerRequest *prometheus.HistogramVec

	estimated *prometheus.CounterVec
}

// NewCostMetrics creates and registers cost metrics with the provided registry.
func NewCostMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_total",
				Help:      "Total cost in USD by provider and model",
			},
			[]string{"provider", "model"},
		),

		costPerRequest: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_per_request",
				Help:      "Cost distribution per request in USD",
				// $0.001 to $10
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"provider", "model"},
		),

		estimated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_estimated_total",
				Help:      "Requests priced from estimated rather than reported token usage",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		cm.costTotal,
		cm.costPerRequest,
		cm.estimated,
	)

	return cm
}

// RecordRequestCost records the cost of a single request.
func (cm *CostMetrics) RecordRequestCost(provider, model string, costUSD float64, estimated bool) {
	if costUSD <= 0 {
		return
	}

	cm.costTotal.WithLabelValues(provider, model).Add(costUSD)
	cm.costPerRequest.WithLabelValues(provider, model).Observe(costUSD)
	if estimated {
		cm.estimated.WithLabelValues(provider).Inc()
	}
}
