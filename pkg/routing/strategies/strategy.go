package strategies

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind names a routing strategy. The set is closed: every Kind is handled
// by Order and nothing else can be plugged in at runtime.
type Kind string

const (
	// RoundRobin rotates the eligible list by a shared cursor per selection.
	RoundRobin Kind = "round-robin"

	// Failover orders by static priority, highest first.
	Failover Kind = "failover"

	// LeastLatency orders by rolling average latency, fastest first.
	LeastLatency Kind = "least-latency"

	// CostOptimized orders by declared cost per token, cheapest first.
	CostOptimized Kind = "cost-optimized"
)

// Kinds returns every supported strategy in a stable order.
func Kinds() []Kind {
	return []Kind{RoundRobin, Failover, LeastLatency, CostOptimized}
}

// ParseKind converts a configuration or header value into a Kind.
// Matching is case-insensitive and accepts underscores for dashes.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown routing strategy %q", s)
}

// String returns the strategy name.
func (k Kind) String() string {
	return string(k)
}

// Candidate is the routing view of one eligible provider. Candidates are
// passed to Order in declaration order; every strategy keeps that order
// among ties.
type Candidate struct {
	// ID is the provider id.
	ID string

	// Priority is the static failover weight. Higher is preferred.
	Priority int

	// CostPerToken is the declared price of one token.
	CostPerToken float64

	// DeclaredLatency is the configured latency estimate. Zero means unknown.
	DeclaredLatency time.Duration

	// ObservedLatency is the rolling average of recent successful
	// dispatches. It is only meaningful when Observed is true.
	ObservedLatency time.Duration

	// Observed is true once at least one latency sample exists.
	Observed bool
}

// EffectiveLatency returns the latency the strategies rank by: the observed
// average when one exists, else the declared latency. ok is false when the
// provider has neither.
func (c Candidate) EffectiveLatency() (latency time.Duration, ok bool) {
	if c.Observed {
		return c.ObservedLatency, true
	}
	if c.DeclaredLatency > 0 {
		return c.DeclaredLatency, true
	}
	return 0, false
}

// Order returns a new slice holding candidates in the order kind prefers.
// cursor is the round-robin position for this selection and is ignored by
// every other strategy. The input slice is not modified.
func Order(kind Kind, candidates []Candidate, cursor uint64) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	if len(out) < 2 {
		return out
	}

	switch kind {
	case RoundRobin:
		return rotate(out, cursor)
	case Failover:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority > out[j].Priority
		})
	case LeastLatency:
		sort.SliceStable(out, func(i, j int) bool {
			return latencyLess(out[i], out[j])
		})
	case CostOptimized:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CostPerToken != out[j].CostPerToken {
				return out[i].CostPerToken < out[j].CostPerToken
			}
			return latencyLess(out[i], out[j])
		})
	}

	return out
}

// latencyLess ranks a provider with no latency information ahead of every
// provider with some, so cold providers receive trial traffic.
func latencyLess(a, b Candidate) bool {
	la, okA := a.EffectiveLatency()
	lb, okB := b.EffectiveLatency()
	switch {
	case !okA && !okB:
		return false
	case !okA:
		return true
	case !okB:
		return false
	default:
		return la < lb
	}
}
