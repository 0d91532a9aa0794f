package routing

import (
	"log/slog"

	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/routing/strategies"
)

// entry is the engine's per-provider state cell: the static descriptor, the
// breaker and the health aggregate. Nothing in it is guarded by an
// engine-wide lock.
type entry struct {
	desc    Descriptor
	breaker *circuitbreaker.Breaker
	stats   *ProviderStats
}

// candidate builds the strategy view of the entry.
func (e *entry) candidate() strategies.Candidate {
	observed, ok := e.stats.AverageLatency()
	return strategies.Candidate{
		ID:              e.desc.ID,
		Priority:        e.desc.Priority,
		CostPerToken:    e.desc.CostPerToken,
		DeclaredLatency: e.desc.DeclaredLatency,
		ObservedLatency: observed,
		Observed:        ok,
	}
}

// ProviderSelector handles filtering of providers by model capability and
// circuit breaker state. The provider list is fixed at construction and
// kept in declaration order.
type ProviderSelector struct {
	entries []*entry
}

// newProviderSelector creates a new provider selector.
func newProviderSelector(entries []*entry) *ProviderSelector {
	return &ProviderSelector{entries: entries}
}

// FilterByModel returns the entries that serve model, in declaration order.
// An empty model matches every provider.
func (s *ProviderSelector) FilterByModel(model string) []*entry {
	capable := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if model == "" || e.desc.Supports(model) {
			capable = append(capable, e)
		} else {
			slog.Debug("provider excluded due to model capability",
				"provider", e.desc.ID,
				"model", model,
			)
		}
	}
	return capable
}

// FilterByBreaker splits entries into those whose breaker is Closed or
// HalfOpen and the ids of those whose breaker is Open.
func (s *ProviderSelector) FilterByBreaker(entries []*entry) (eligible []*entry, open []string) {
	eligible = make([]*entry, 0, len(entries))
	for _, e := range entries {
		if e.breaker.Eligible() {
			eligible = append(eligible, e)
			continue
		}
		open = append(open, e.desc.ID)
		slog.Debug("provider excluded due to open circuit breaker",
			"provider", e.desc.ID,
		)
	}
	return eligible, open
}

// GetProviderNames returns the ids of all configured providers in
// declaration order.
func (s *ProviderSelector) GetProviderNames() []string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.desc.ID)
	}
	return names
}
