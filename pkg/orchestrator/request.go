package orchestrator

import (
	"time"

	"mercator-hq/relay/pkg/cache"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing/strategies"
)

// CacheControl carries per-request cache overrides.
type CacheControl struct {
	// NoCache skips the lookup. The response is still stored unless NoStore
	// is also set.
	NoCache bool

	// NoStore skips storing the response.
	NoStore bool

	// TTL overrides the default entry lifetime. It is capped by the cache's
	// maximum TTL; zero keeps the default.
	TTL time.Duration
}

// Options carries per-request routing and cache overrides.
type Options struct {
	Cache CacheControl

	// Strategy overrides the configured routing strategy when set.
	Strategy strategies.Kind

	// Provider moves the named provider to the front of the fallback chain
	// when it is eligible.
	Provider string
}

// Request is one inbound completion request.
type Request struct {
	// ID identifies the request in logs and metadata. Handle assigns one
	// when empty.
	ID string

	// Completion is the normalized completion request.
	Completion *providers.CompletionRequest

	Options Options
}

// CacheStatus describes how the cache took part in a request.
type CacheStatus string

const (
	// CacheHit means the response came from the cache.
	CacheHit CacheStatus = "hit"

	// CacheMiss means the cache was consulted and had no live entry.
	CacheMiss CacheStatus = "miss"

	// CacheBypass means the lookup was skipped (no-cache, or caching off).
	CacheBypass CacheStatus = "bypass"
)

// Metadata describes how a request was served. It is filled for failed
// requests as far as they got.
type Metadata struct {
	RequestID   string          `json:"request_id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Model       string          `json:"model"`
	CacheStatus CacheStatus     `json:"cache_status"`
	CacheTier   cache.Tier      `json:"cache_tier,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	Strategy    strategies.Kind `json:"strategy,omitempty"`
	Candidates  []string        `json:"candidates,omitempty"`

	// Latency is the wall time of the whole request.
	Latency time.Duration `json:"latency"`

	// ProviderLatency is the duration of the successful attempt.
	ProviderLatency time.Duration `json:"provider_latency,omitempty"`

	// Cost is the USD cost of the upstream exchange. Always zero on a hit.
	Cost          float64 `json:"cost"`
	Tokens        int     `json:"tokens,omitempty"`
	CostEstimated bool    `json:"cost_estimated,omitempty"`

	// Attempts counts dispatch attempts across every provider.
	Attempts int `json:"attempts"`

	// Failures lists the providers that failed or were skipped, in order.
	Failures []Failure `json:"failures,omitempty"`
}

// Result is the outcome of Handle.
type Result struct {
	// Response is nil when Handle failed.
	Response *providers.CompletionResponse

	Metadata Metadata
}
