package health

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/relay/pkg/circuitbreaker"
)

// BreakerSource exposes per-provider breakers. *routing.Engine implements it.
type BreakerSource interface {
	ProviderIDs() []string
	Breaker(id string) *circuitbreaker.Breaker
}

// ProvidersCheck fails when every provider's breaker is open, which means
// no request can be dispatched until one of them reaches HalfOpen.
func ProvidersCheck(src BreakerSource) CheckFunc {
	return func(ctx context.Context) error {
		ids := src.ProviderIDs()
		if len(ids) == 0 {
			return fmt.Errorf("no providers configured")
		}

		var open []string
		for _, id := range ids {
			b := src.Breaker(id)
			if b == nil || b.Eligible() {
				return nil
			}
			open = append(open, id)
		}
		return fmt.Errorf("all provider breakers open: %s", strings.Join(open, ", "))
	}
}

// SharedCache exposes the shared tier's state. *cache.Manager implements it.
type SharedCache interface {
	SharedBackend() string
	SharedAvailable() bool
}

// SharedCacheCheck fails while the shared tier is cooling down after a
// connection failure. It passes when no shared tier is configured.
func SharedCacheCheck(c SharedCache) CheckFunc {
	return func(ctx context.Context) error {
		backend := c.SharedBackend()
		if backend == "none" || c.SharedAvailable() {
			return nil
		}
		return fmt.Errorf("shared cache tier %q unreachable, serving from the fast tier only", backend)
	}
}
