package metrics

import (
	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the tiered response cache.
//
// Metrics:
//   - mercator_relay_cache_hits_total: hits by tier
//   - mercator_relay_cache_misses_total: lookups that missed both tiers
//   - mercator_relay_cache_evictions_total: entries evicted or purged by tier
//   - mercator_relay_cache_shared_errors_total: shared tier failures by operation
//   - mercator_relay_cache_writes_dropped_total: shared writes dropped on a full queue
type CacheMetrics struct {
	hitsTotal *prometheus.CounterVec

	missesTotal prometheus.Counter

	evictionsTotal *prometheus.CounterVec

	sharedErrors *prometheus.CounterVec

	writesDropped prometheus.Counter
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits by tier",
			},
			[]string{"tier"},
		),

		missesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),

		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of cache entries evicted or purged",
			},
			[]string{"tier"},
		),

		sharedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_shared_errors_total",
				Help:      "Total number of shared tier operation failures",
			},
			[]string{"op"},
		),

		writesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_writes_dropped_total",
				Help:      "Total number of shared tier writes dropped because the queue was full",
			},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.evictionsTotal,
		cm.sharedErrors,
		cm.writesDropped,
	)

	return cm
}

// CacheHit records a hit served by tier.
func (c *Collector) CacheHit(tier string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.hitsTotal.WithLabelValues(tier).Inc()
}

// CacheMiss records a lookup that missed both tiers.
func (c *Collector) CacheMiss() {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.missesTotal.Inc()
}

// CacheEviction records n entries removed from tier.
func (c *Collector) CacheEviction(tier string, n int) {
	if !c.config.Enabled || n <= 0 {
		return
	}
	c.cacheMetrics.evictionsTotal.WithLabelValues(tier).Add(float64(n))
}

// CacheSharedError records a failed shared tier operation.
func (c *Collector) CacheSharedError(op string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.sharedErrors.WithLabelValues(op).Inc()
}

// CacheWriteDropped records a shared write dropped on a full queue.
func (c *Collector) CacheWriteDropped() {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.writesDropped.Inc()
}
