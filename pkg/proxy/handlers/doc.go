// Package handlers provides the HTTP handlers of the relay API.
//
// ChatHandler serves POST /v1/chat/completions. It parses the OpenAI-shaped
// body, reads the override headers (X-Cache-Control, X-Cache-TTL,
// X-Routing-Strategy, X-Provider), hands the request to the orchestrator and
// writes the response. Serving metadata goes out as headers on success and
// failure alike:
//
//	X-Request-ID: 0b6f1c9e-4a2d-4c51-9d6e-2a8f5e7b1c33
//	X-Cache: miss
//	X-Provider: openai
//	X-Attempts: 2
//	X-Cost: 0.00042
//
// With X-Relay-Metadata: true the same metadata is also embedded in the
// response body under "relay".
//
// CacheHandler serves DELETE /v1/cache/{fingerprint}. The fingerprint is the
// X-Cache-Key value returned with the original response.
//
// Health, readiness and metrics endpoints live in the telemetry packages.
package handlers
