// Package proxy implements the OpenAI-compatible wire format of the relay.
//
// It turns HTTP requests into orchestrator requests and orchestrator results
// back into HTTP responses. The handlers subpackage wires these pieces to
// the routes; middleware carries the request ID, access log and panic
// recovery.
//
// # Requests
//
// ParseChatCompletionRequest reads and validates an OpenAI chat completion
// body under a byte limit. ParseOptions reads the per-request overrides:
//
//	X-Cache-Control: no-cache | no-store | no-cache, no-store
//	X-Cache-TTL: 90s | 90
//	X-Routing-Strategy: round-robin | failover | least-latency | cost-optimized
//	X-Provider: anthropic
//
// A malformed header is a 400, not a silently ignored override.
// ToCompletionRequest converts the body to providers.CompletionRequest.
// Multimodal content keeps only its text parts.
//
// # Responses
//
// FormatChatCompletionResponse builds the OpenAI response and echoes the
// requested model id. SetMetadataHeaders reports how the request was served:
//
//	X-Request-ID  request ID
//	X-Cache       hit | miss | bypass
//	X-Cache-Tier  fast | shared (hits only)
//	X-Cache-Key   request fingerprint, usable with DELETE /v1/cache/{fingerprint}
//	X-Provider    provider that answered
//	X-Attempts    dispatch attempts across all providers
//	X-Cost        USD cost of the upstream exchange (0 on a hit)
//
// # Errors
//
// HandleError maps the orchestrator's typed errors to OpenAI-format error
// bodies. The error type selects the status code:
//
//	invalid request       400 invalid_request_error
//	invalid model         404 not_found
//	body too large        413 request_too_large
//	all providers failed  502 bad_gateway
//	no eligible provider  503 service_unavailable
//	deadline exceeded     504 gateway_timeout
//
// Unknown errors become a generic 500 so internal details never reach
// clients.
package proxy
