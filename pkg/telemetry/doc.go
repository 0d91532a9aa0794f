// Package telemetry provides observability for Mercator Relay.
//
// # Components
//
//   - logging: slog setup with JSON or text output, secret redaction and
//     request-scoped attributes (request id, provider, model) pulled from
//     the context
//   - metrics: Prometheus collectors on a private registry for requests,
//     attempts, provider latency and errors, breaker state, cost and cache
//     behavior
//   - health: liveness and readiness checks plus the provider breaker
//     report served at /health/providers
//
// The orchestrator and cache report events through small observer
// interfaces; metrics.Collector implements both.
package telemetry
