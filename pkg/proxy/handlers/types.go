package handlers

import (
	"context"

	"mercator-hq/relay/pkg/orchestrator"
)

// Orchestrator serves one completion request through cache, routing and
// dispatch.
type Orchestrator interface {
	Handle(ctx context.Context, req *orchestrator.Request) (*orchestrator.Result, error)
}

// CacheInvalidator removes a cached response from every tier.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, fingerprint string) error
}
