package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/orchestrator"
	"mercator-hq/relay/pkg/providers"

	"github.com/prometheus/client_golang/prometheus"
)

// overflowLabel replaces a model label once the cardinality limit is hit.
const overflowLabel = "other"

// Collector owns every Prometheus metric of the relay. It implements
// orchestrator.Observer and cache.Observer, and its BreakerStateChanged
// method is the routing engine's breaker transition hook.
//
// All recording methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	providerMetrics *ProviderMetrics
	costMetrics     *CostMetrics
	cacheMetrics    *CacheMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh private one. Zero fields of cfg are filled with defaults.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = append([]float64(nil), config.DefaultRequestDurationBuckets...)
	}
	if cfg.MaxCardinality <= 0 {
		cfg.MaxCardinality = config.DefaultMetricsCardinality
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxCardinality),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.providerMetrics = NewProviderMetrics(cfg, registry)
	c.costMetrics = NewCostMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

// Enabled reports whether recording is active.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// RequestCompleted records one finished request. Cache hits are counted
// under provider "cache".
func (c *Collector) RequestCompleted(md *orchestrator.Metadata, err error) {
	if !c.config.Enabled || md == nil {
		return
	}

	provider := md.Provider
	if provider == "" {
		provider = "none"
		if md.CacheStatus == orchestrator.CacheHit {
			provider = "cache"
		}
	}
	status := RequestStatus(err)
	model := c.limitModel("request", provider, md.Model, status)

	c.requestMetrics.RecordRequest(provider, model, status, string(md.CacheStatus), md.Latency, md.Attempts)
	if md.Tokens > 0 && md.CacheStatus != orchestrator.CacheHit {
		c.requestMetrics.RecordTokens(provider, model, md.Tokens)
	}
	c.costMetrics.RecordRequestCost(provider, model, md.Cost, md.CostEstimated)
}

// AttemptCompleted records one dispatch attempt against a provider.
func (c *Collector) AttemptCompleted(provider, model string, latency time.Duration, kind providers.ErrorKind) {
	if !c.config.Enabled {
		return
	}

	model = c.limitModel("attempt", provider, model, "")
	c.providerMetrics.RecordAttempt(provider, kind.String())
	if kind == providers.KindNone {
		c.providerMetrics.RecordLatency(provider, model, latency.Seconds())
		return
	}
	c.providerMetrics.RecordError(provider, kind.String())
}

// BreakerStateChanged updates the breaker state gauge and transition
// counter. It has the circuitbreaker.StateChangeFunc signature.
func (c *Collector) BreakerStateChanged(provider string, from, to circuitbreaker.State) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.SetBreakerState(provider, to)
	c.providerMetrics.RecordTransition(provider, from.String(), to.String())
}

// InitProvider sets the breaker gauge of a provider to its current state
// so the series exists before the first transition.
func (c *Collector) InitProvider(provider string, state circuitbreaker.State) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.SetBreakerState(provider, state)
}

// limitModel returns model, or overflowLabel when the label set would
// push the family past the cardinality limit.
func (c *Collector) limitModel(family, provider, model, status string) string {
	labelSet := fmt.Sprintf("%s:%s:%s:%s", family, provider, model, status)
	if c.cardinalityLimiter.Allow(labelSet) {
		return model
	}
	if c.cardinalityLimiter.warnOnce() {
		slog.Warn("metrics cardinality limit reached, aggregating models",
			"limit", c.cardinalityLimiter.maxCardinality,
			"label", overflowLabel,
		)
	}
	return overflowLabel
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RequestStatus maps a Handle error to the status label.
func RequestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, orchestrator.ErrInvalidModel):
		return "invalid_model"
	case errors.Is(err, orchestrator.ErrNoEligibleProvider):
		return "no_eligible_provider"
	case errors.Is(err, orchestrator.ErrRequestDeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, orchestrator.ErrAllProvidersFailed):
		return "all_providers_failed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
	warned         atomic.Bool
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
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

func (cl *CardinalityLimiter) warnOnce() bool {
	return cl.warned.CompareAndSwap(false, true)
}
