package routing

import (
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing/strategies"
)

// Descriptor is the static routing description of one provider.
type Descriptor struct {
	// ID is the provider id (the key under providers: in configuration).
	ID string

	// Priority is the failover weight. Higher is tried first.
	Priority int

	// CostPerToken is the declared price of one token in USD.
	CostPerToken float64

	// DeclaredLatency seeds the least-latency strategy before observations
	// exist. Zero means unknown.
	DeclaredLatency time.Duration

	// Models is the capability set. Keys are public model ids ("*" accepts
	// anything); values optionally rewrite the id sent upstream. A nil map
	// accepts every model.
	Models map[string]string
}

// Supports reports whether the provider serves model.
func (d Descriptor) Supports(model string) bool {
	return providers.ProviderConfig{Models: d.Models}.Supports(model)
}

// RewritesModel reports whether the provider sends model upstream under
// another id.
func (d Descriptor) RewritesModel(model string) bool {
	return providers.ProviderConfig{Models: d.Models}.RewritesModel(model)
}

// SelectRequest carries the inputs of one routing decision.
type SelectRequest struct {
	// RequestID is used for logging only.
	RequestID string

	// Model is the requested model id.
	Model string

	// Strategy overrides the engine's configured strategy when set.
	Strategy strategies.Kind

	// Preferred moves the named provider to the front of the candidate list
	// when it is eligible. An ineligible or unknown preference is ignored.
	Preferred string
}

// Decision is the ordered fallback chain for one request. It is consumed
// once by the orchestrator and never stored.
type Decision struct {
	// Candidates are provider ids in the order they should be tried.
	Candidates []string

	// Strategy is the strategy that produced the order.
	Strategy strategies.Kind

	// Open lists providers that support the model but were excluded because
	// their circuit breaker is open.
	Open []string
}

// Empty reports whether no provider qualified.
func (d *Decision) Empty() bool {
	return d == nil || len(d.Candidates) == 0
}

// Outcome is the result of dispatching one request to one provider after
// all retries against it.
type Outcome struct {
	// Provider is the provider id.
	Provider string

	// Success is true when the provider returned a response.
	Success bool

	// Latency is the duration of the final attempt.
	Latency time.Duration

	// Cost is the USD cost of the exchange. Zero on failure.
	Cost float64

	// Kind classifies the failure. KindNone on success.
	Kind providers.ErrorKind

	// Retryable reports whether the failure kind may succeed on retry.
	Retryable bool

	// Attempts is the number of dispatch attempts made.
	Attempts int
}

// RoutingStats contains engine-wide counters.
type RoutingStats struct {
	// TotalSelections is the number of Select calls.
	TotalSelections int64

	// EmptyDecisions is the number of Select calls that found no eligible provider.
	EmptyDecisions int64

	// PreferredOverrides is the number of decisions reordered by a preferred provider.
	PreferredOverrides int64

	// StrategyUseCount tracks how many decisions each strategy produced.
	// Key: strategy name, Value: use count
	StrategyUseCount map[string]int64

	// FirstChoice tracks how often each provider headed a decision.
	// Key: provider id, Value: count
	FirstChoice map[string]int64

	// LastResetTime is when statistics were last reset.
	LastResetTime time.Time
}
