package routing

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing/strategies"
)

// Config contains the engine settings taken from configuration.
type Config struct {
	// Strategy is the default ordering strategy.
	Strategy strategies.Kind

	// LatencyWindow is the number of samples in each provider's rolling
	// latency average.
	LatencyWindow int

	// Breaker holds the per-provider circuit breaker thresholds.
	Breaker circuitbreaker.Config

	// OnStateChange, if set, is notified of every breaker transition.
	OnStateChange circuitbreaker.StateChangeFunc
}

// Engine holds the configured providers, their circuit breakers and health
// aggregates, and produces ordered fallback chains.
//
// Engine is safe for concurrent use. Provider state is held in independent
// per-provider cells; the only engine-wide mutable values are the atomic
// round-robin cursor and the atomically swapped default strategy.
type Engine struct {
	selector *ProviderSelector
	byID     map[string]*entry
	strategy atomic.Value // strategies.Kind
	cursor   strategies.Cursor
	stats    *AtomicRoutingStats
}

// NewEngine creates an engine over descs. The order of descs is the
// declaration order strategies use to break ties.
func NewEngine(descs []Descriptor, cfg Config) (*Engine, error) {
	if len(descs) == 0 {
		return nil, ErrNoProvidersConfigured
	}
	if _, err := strategies.ParseKind(string(cfg.Strategy)); err != nil {
		return nil, invalidStrategy(string(cfg.Strategy))
	}

	var opts []circuitbreaker.Option
	if cfg.OnStateChange != nil {
		opts = append(opts, circuitbreaker.WithStateChange(cfg.OnStateChange))
	}

	entries := make([]*entry, 0, len(descs))
	byID := make(map[string]*entry, len(descs))
	for _, d := range descs {
		if d.ID == "" {
			return nil, fmt.Errorf("provider descriptor without id")
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", d.ID)
		}
		e := &entry{
			desc:    d,
			breaker: circuitbreaker.New(d.ID, cfg.Breaker, opts...),
			stats:   NewProviderStats(cfg.LatencyWindow),
		}
		entries = append(entries, e)
		byID[d.ID] = e
	}

	eng := &Engine{
		selector: newProviderSelector(entries),
		byID:     byID,
		stats:    NewAtomicRoutingStats(),
	}
	eng.strategy.Store(cfg.Strategy)

	return eng, nil
}

func invalidStrategy(name string) error {
	available := make([]string, 0, 4)
	for _, k := range strategies.Kinds() {
		available = append(available, k.String())
	}
	return &InvalidStrategyError{Strategy: name, AvailableStrategies: available}
}

// Strategy returns the default strategy.
func (e *Engine) Strategy() strategies.Kind {
	return e.strategy.Load().(strategies.Kind)
}

// SetStrategy swaps the default strategy. Selections already in progress
// finish with the previous one.
func (e *Engine) SetStrategy(kind strategies.Kind) error {
	if _, err := strategies.ParseKind(string(kind)); err != nil {
		return invalidStrategy(string(kind))
	}
	if prev := e.Strategy(); prev != kind {
		e.strategy.Store(kind)
		slog.Info("routing strategy changed", "from", prev.String(), "to", kind.String())
	}
	return nil
}

// Select filters providers to those serving the model whose breaker is not
// Open, orders them with the request's strategy (or the default) and
// returns the fallback chain. The decision is empty when nothing qualifies.
func (e *Engine) Select(req SelectRequest) *Decision {
	e.stats.IncrementTotal()

	kind := req.Strategy
	if kind == "" {
		kind = e.Strategy()
	}

	capable := e.selector.FilterByModel(req.Model)
	eligible, open := e.selector.FilterByBreaker(capable)

	decision := &Decision{Strategy: kind, Open: open}
	if len(eligible) == 0 {
		e.stats.IncrementEmpty()
		slog.Debug("no eligible provider",
			"request_id", req.RequestID,
			"model", req.Model,
			"capable", len(capable),
			"open", open,
		)
		return decision
	}

	candidates := make([]strategies.Candidate, len(eligible))
	for i, en := range eligible {
		candidates[i] = en.candidate()
	}

	var cursor uint64
	if kind == strategies.RoundRobin {
		cursor = e.cursor.Next()
	}
	ordered := strategies.Order(kind, candidates, cursor)

	decision.Candidates = make([]string, len(ordered))
	for i, c := range ordered {
		decision.Candidates[i] = c.ID
	}

	if req.Preferred != "" && preferFirst(decision.Candidates, req.Preferred) {
		e.stats.IncrementPreferred()
	}

	e.stats.IncrementStrategy(kind.String())
	e.stats.IncrementFirstChoice(decision.Candidates[0])

	slog.Debug("routing decision",
		"request_id", req.RequestID,
		"model", req.Model,
		"strategy", kind.String(),
		"candidates", decision.Candidates,
	)

	return decision
}

// preferFirst moves id to the front of ids if present, keeping the
// relative order of the rest. It reports whether id was found.
func preferFirst(ids []string, id string) bool {
	for i, c := range ids {
		if c != id {
			continue
		}
		copy(ids[1:i+1], ids[:i])
		ids[0] = id
		return true
	}
	return false
}

// Ticket is breaker admission for one provider dispatch. It must be
// resolved through Engine.Record; resolving it twice is a no-op.
type Ticket struct {
	Provider string

	admission *circuitbreaker.Admission
}

func (t *Ticket) resolve(o Outcome) {
	switch {
	case o.Success:
		t.admission.Done(true)
	case o.Kind == providers.KindCanceled:
		t.admission.Release()
	default:
		t.admission.Done(!o.Kind.CountsAsFailure())
	}
}

// Acquire asks the provider's breaker for admission. A HalfOpen breaker
// admits exactly one ticket until that ticket is resolved.
func (e *Engine) Acquire(id string) (*Ticket, error) {
	en, ok := e.byID[id]
	if !ok {
		return nil, &ProviderNotFoundError{
			ProviderName:       id,
			AvailableProviders: e.selector.GetProviderNames(),
		}
	}

	adm, err := en.breaker.Allow()
	if err != nil {
		return nil, &ProviderUnavailableError{
			Provider: id,
			State:    en.breaker.State(),
			Cause:    err,
		}
	}

	return &Ticket{Provider: id, admission: adm}, nil
}

// Record folds an outcome into the provider's health aggregate and resolves
// the ticket's breaker admission. A nil ticket records stats only. Outcomes
// whose kind does not count as a failure (an unknown model) resolve the
// admission as a success; a caller cancellation releases it without an
// outcome.
func (e *Engine) Record(t *Ticket, o Outcome) {
	id := o.Provider
	if id == "" && t != nil {
		id = t.Provider
	}

	en, ok := e.byID[id]
	if !ok {
		slog.Warn("outcome for unknown provider", "provider", id)
		if t != nil {
			t.resolve(o)
		}
		return
	}

	en.stats.Observe(o)

	if t != nil {
		t.resolve(o)
	}
}

// Descriptor returns the descriptor of the provider.
func (e *Engine) Descriptor(id string) (Descriptor, bool) {
	en, ok := e.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return en.desc, true
}

// Breaker returns the provider's circuit breaker, or nil.
func (e *Engine) Breaker(id string) *circuitbreaker.Breaker {
	if en, ok := e.byID[id]; ok {
		return en.breaker
	}
	return nil
}

// ProviderIDs returns every provider id in declaration order.
func (e *Engine) ProviderIDs() []string {
	return e.selector.GetProviderNames()
}

// GetStats returns current routing statistics.
func (e *Engine) GetStats() *RoutingStats {
	return e.stats.Snapshot()
}

// ProviderSnapshot is the health view of one provider.
type ProviderSnapshot struct {
	ID              string                  `json:"id"`
	Priority        int                     `json:"priority"`
	CostPerToken    float64                 `json:"cost_per_token"`
	DeclaredLatency string                  `json:"declared_latency,omitempty"`
	Breaker         circuitbreaker.Snapshot `json:"breaker"`
	Stats           ProviderStatsSnapshot   `json:"stats"`
}

// Snapshot returns the health view of every provider in declaration order.
func (e *Engine) Snapshot() []ProviderSnapshot {
	out := make([]ProviderSnapshot, 0, len(e.selector.entries))
	for _, en := range e.selector.entries {
		snap := ProviderSnapshot{
			ID:           en.desc.ID,
			Priority:     en.desc.Priority,
			CostPerToken: en.desc.CostPerToken,
			Breaker:      en.breaker.Snapshot(),
			Stats:        en.stats.Snapshot(),
		}
		if en.desc.DeclaredLatency > 0 {
			snap.DeclaredLatency = en.desc.DeclaredLatency.String()
		}
		out = append(out, snap)
	}
	return out
}
