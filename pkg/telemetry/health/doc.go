// Package health provides liveness, readiness and provider health
// endpoints for Mercator Relay.
//
// # Endpoints
//
//   - /health: liveness, answers 200 while the process runs
//   - /ready: readiness, runs the registered component checks
//   - /health/providers: breaker state and routing statistics per provider
//   - /version: build information
//
// # Readiness
//
// Checks are registered as critical or not. The relay wires two:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("providers", health.ProvidersCheck(engine), true)
//	checker.RegisterCheck("cache_shared", health.SharedCacheCheck(manager), false)
//
// A failing critical check (every breaker open) makes the relay not ready
// and the probe answers 503. A failing non-critical check (the shared cache
// tier in cooldown) reports "degraded" with 200, since requests are still
// served from the fast tier.
package health
