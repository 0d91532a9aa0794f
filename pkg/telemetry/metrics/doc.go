// Package metrics provides Prometheus metrics collection for Mercator Relay.
//
// # Overview
//
// A Collector registers every metric family on a private registry and is
// handed to the components that produce events:
//
//   - the orchestrator, as its Observer (requests and attempts)
//   - the cache manager, as its Observer (hits, misses, evictions, shared tier errors)
//   - the routing engine, as its breaker state change hook
//
// # Metrics Categories
//
//   - Request Metrics: count by provider, model, status and cache status; duration; attempts; tokens
//   - Provider Metrics: breaker state gauge and transitions; attempt latency; attempts and errors by kind
//   - Cost Metrics: total cost and cost per request by provider and model
//   - Cache Metrics: hits by tier, misses, evictions, shared tier errors, dropped writes
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine, _ := routing.NewEngine(descs, routing.Config{OnStateChange: collector.BreakerStateChanged})
//	manager := cache.NewManager(fast, shared, cache.Options{Observer: collector})
//	orch := orchestrator.New(engine, registry, ocfg, orchestrator.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality Management
//
// Model ids come from callers, so the model label is guarded by a
// CardinalityLimiter. Once MetricsConfig.MaxCardinality label sets exist,
// new models are aggregated into "other" and a warning is logged once.
//
// # Exposition
//
//	# HELP mercator_relay_requests_total Total number of completion requests handled
//	# TYPE mercator_relay_requests_total counter
//	mercator_relay_requests_total{cache="miss",model="gpt-4o",provider="openai",status="success"} 1234
package metrics
