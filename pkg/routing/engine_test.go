package routing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing/strategies"
)

func newTestEngine(t *testing.T, kind strategies.Kind, descs ...Descriptor) *Engine {
	t.Helper()
	e, err := NewEngine(descs, Config{
		Strategy:      kind,
		LatencyWindow: 4,
		Breaker:       circuitbreaker.Config{FailureThreshold: 2, OpenDuration: time.Minute},
	})
	require.NoError(t, err)
	return e
}

func tripBreaker(t *testing.T, e *Engine, id string) {
	t.Helper()
	for i := 0; i < 2; i++ {
		ticket, err := e.Acquire(id)
		require.NoError(t, err)
		e.Record(ticket, Outcome{Provider: id, Kind: providers.KindTransient, Retryable: true})
	}
	require.Equal(t, circuitbreaker.StateOpen, e.Breaker(id).State())
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil, Config{Strategy: strategies.RoundRobin})
	assert.ErrorIs(t, err, ErrNoProvidersConfigured)

	_, err = NewEngine([]Descriptor{{ID: "a"}}, Config{Strategy: "sticky"})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = NewEngine([]Descriptor{{ID: "a"}, {ID: "a"}}, Config{Strategy: strategies.Failover})
	assert.Error(t, err)
}

func TestEngine_RoundRobinDistribution(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin,
		Descriptor{ID: "a"}, Descriptor{ID: "b"}, Descriptor{ID: "c"})

	const k = 4
	counts := map[string]int{}
	var order []string
	for i := 0; i < 3*k; i++ {
		d := e.Select(SelectRequest{Model: "gpt-4o"})
		require.Len(t, d.Candidates, 3)
		counts[d.Candidates[0]]++
		order = append(order, d.Candidates[0])
	}

	assert.Equal(t, map[string]int{"a": k, "b": k, "c": k}, counts)
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, order[:6])
}

func TestEngine_RoundRobinConcurrentSelectsAreEven(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin,
		Descriptor{ID: "a"}, Descriptor{ID: "b"})

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := e.Select(SelectRequest{})
			mu.Lock()
			counts[d.Candidates[0]]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counts["a"])
	assert.Equal(t, 100, counts["b"])
}

func TestEngine_OpenBreakerExcluded(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin, Descriptor{ID: "a"}, Descriptor{ID: "b"})
	tripBreaker(t, e, "a")

	for i := 0; i < 5; i++ {
		d := e.Select(SelectRequest{Model: "gpt-4o"})
		assert.Equal(t, []string{"b"}, d.Candidates)
		assert.Equal(t, []string{"a"}, d.Open)
	}
}

func TestEngine_AllOpenYieldsEmptyDecision(t *testing.T) {
	e := newTestEngine(t, strategies.Failover, Descriptor{ID: "a"}, Descriptor{ID: "b"})
	tripBreaker(t, e, "a")
	tripBreaker(t, e, "b")

	d := e.Select(SelectRequest{Model: "gpt-4o"})
	assert.True(t, d.Empty())
	assert.ElementsMatch(t, []string{"a", "b"}, d.Open)
	assert.Equal(t, int64(1), e.GetStats().EmptyDecisions)
}

func TestEngine_ModelFiltering(t *testing.T) {
	e := newTestEngine(t, strategies.Failover,
		Descriptor{ID: "openai", Models: map[string]string{"gpt-4o": ""}},
		Descriptor{ID: "anthropic", Models: map[string]string{"claude-3-opus": ""}},
		Descriptor{ID: "gateway", Models: map[string]string{"*": ""}},
	)

	assert.Equal(t, []string{"openai", "gateway"}, e.Select(SelectRequest{Model: "gpt-4o"}).Candidates)
	assert.Equal(t, []string{"gateway"}, e.Select(SelectRequest{Model: "mistral"}).Candidates)

	strict := newTestEngine(t, strategies.Failover,
		Descriptor{ID: "openai", Models: map[string]string{"gpt-4o": ""}})
	d := strict.Select(SelectRequest{Model: "mistral"})
	assert.True(t, d.Empty())
	assert.Empty(t, d.Open)
}

func TestEngine_FailoverOrdersByPriority(t *testing.T) {
	e := newTestEngine(t, strategies.Failover,
		Descriptor{ID: "backup", Priority: 1},
		Descriptor{ID: "primary", Priority: 10},
	)

	assert.Equal(t, []string{"primary", "backup"}, e.Select(SelectRequest{}).Candidates)

	tripBreaker(t, e, "primary")
	assert.Equal(t, []string{"backup"}, e.Select(SelectRequest{}).Candidates)
}

func TestEngine_LeastLatencyUsesObservations(t *testing.T) {
	e := newTestEngine(t, strategies.LeastLatency,
		Descriptor{ID: "a"}, Descriptor{ID: "b"}, Descriptor{ID: "cold"})

	e.Record(nil, Outcome{Provider: "a", Success: true, Latency: 300 * time.Millisecond})
	e.Record(nil, Outcome{Provider: "b", Success: true, Latency: 100 * time.Millisecond})

	assert.Equal(t, []string{"cold", "b", "a"}, e.Select(SelectRequest{}).Candidates)
}

func TestEngine_CostOptimizedTieBreak(t *testing.T) {
	e := newTestEngine(t, strategies.CostOptimized,
		Descriptor{ID: "a", CostPerToken: 0.00001, DeclaredLatency: 900 * time.Millisecond},
		Descriptor{ID: "b", CostPerToken: 0.00001, DeclaredLatency: 200 * time.Millisecond},
		Descriptor{ID: "c", CostPerToken: 0.000001},
	)

	assert.Equal(t, []string{"c", "b", "a"}, e.Select(SelectRequest{}).Candidates)
}

func TestEngine_StrategyOverrideAndPreferred(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin,
		Descriptor{ID: "a", Priority: 1},
		Descriptor{ID: "b", Priority: 5},
		Descriptor{ID: "c", Priority: 3},
	)

	d := e.Select(SelectRequest{Strategy: strategies.Failover})
	assert.Equal(t, strategies.Failover, d.Strategy)
	assert.Equal(t, []string{"b", "c", "a"}, d.Candidates)

	d = e.Select(SelectRequest{Strategy: strategies.Failover, Preferred: "a"})
	assert.Equal(t, []string{"a", "b", "c"}, d.Candidates)

	d = e.Select(SelectRequest{Strategy: strategies.Failover, Preferred: "missing"})
	assert.Equal(t, []string{"b", "c", "a"}, d.Candidates)

	assert.Equal(t, int64(1), e.GetStats().PreferredOverrides)
}

func TestEngine_SetStrategy(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin, Descriptor{ID: "a"})

	require.NoError(t, e.SetStrategy(strategies.CostOptimized))
	assert.Equal(t, strategies.CostOptimized, e.Strategy())

	err := e.SetStrategy("random")
	assert.ErrorIs(t, err, ErrInvalidStrategy)
	assert.Equal(t, strategies.CostOptimized, e.Strategy())
}

func TestEngine_AcquireUnknownProvider(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin, Descriptor{ID: "a"})

	_, err := e.Acquire("nope")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestEngine_AcquireRefusedWhenOpen(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin, Descriptor{ID: "a"})
	tripBreaker(t, e, "a")

	_, err := e.Acquire("a")
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.True(t, errors.Is(err, circuitbreaker.ErrOpen))

	var unavailable *ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, circuitbreaker.StateOpen, unavailable.State)
}

func TestEngine_InvalidModelDoesNotTripBreaker(t *testing.T) {
	e := newTestEngine(t, strategies.RoundRobin, Descriptor{ID: "a"})

	for i := 0; i < 5; i++ {
		ticket, err := e.Acquire("a")
		require.NoError(t, err)
		e.Record(ticket, Outcome{Provider: "a", Kind: providers.KindInvalidModel})
	}

	assert.Equal(t, circuitbreaker.StateClosed, e.Breaker("a").State())
	snap := e.Snapshot()[0]
	assert.Equal(t, int64(5), snap.Stats.Failures)
	assert.Equal(t, int64(5), snap.Stats.ErrorsByKind["invalid_model"])
}

func TestEngine_HalfOpenAdmitsOneTicket(t *testing.T) {
	e, err := NewEngine([]Descriptor{{ID: "a"}}, Config{
		Strategy:      strategies.RoundRobin,
		LatencyWindow: 4,
		Breaker:       circuitbreaker.Config{FailureThreshold: 1, OpenDuration: 20 * time.Millisecond},
	})
	require.NoError(t, err)

	ticket, err := e.Acquire("a")
	require.NoError(t, err)
	e.Record(ticket, Outcome{Provider: "a", Kind: providers.KindConnection})
	assert.True(t, e.Select(SelectRequest{}).Empty())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, []string{"a"}, e.Select(SelectRequest{}).Candidates)

	trial, err := e.Acquire("a")
	require.NoError(t, err)

	_, err = e.Acquire("a")
	assert.ErrorIs(t, err, circuitbreaker.ErrTrialInFlight)

	e.Record(trial, Outcome{Provider: "a", Success: true, Latency: time.Millisecond})
	// a second resolution is ignored
	e.Record(trial, Outcome{Provider: "a", Kind: providers.KindTransient})

	assert.Equal(t, circuitbreaker.StateClosed, e.Breaker("a").State())
}

func TestProviderStats_RollingWindow(t *testing.T) {
	s := NewProviderStats(2)

	_, ok := s.AverageLatency()
	assert.False(t, ok)

	s.Observe(Outcome{Success: true, Latency: 100 * time.Millisecond, Cost: 0.5})
	s.Observe(Outcome{Success: true, Latency: 300 * time.Millisecond, Cost: 0.25})
	avg, ok := s.AverageLatency()
	require.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, avg)

	s.Observe(Outcome{Success: true, Latency: 500 * time.Millisecond})
	avg, _ = s.AverageLatency()
	assert.Equal(t, 400*time.Millisecond, avg)

	s.Observe(Outcome{Kind: providers.KindTimeout, Latency: time.Hour})
	avg, _ = s.AverageLatency()
	assert.Equal(t, 400*time.Millisecond, avg)

	snap := s.Snapshot()
	assert.Equal(t, int64(4), snap.Requests)
	assert.Equal(t, int64(3), snap.Successes)
	assert.Equal(t, int64(1), snap.Failures)
	assert.InDelta(t, 0.75, snap.TotalCost, 1e-9)
	assert.Equal(t, "timeout", snap.LastError)
	assert.Equal(t, 2, snap.Samples)
}

func TestEngine_CanceledOutcomeReleasesAdmission(t *testing.T) {
	e, err := NewEngine([]Descriptor{{ID: "a"}}, Config{
		Strategy: strategies.Failover,
		Breaker:  circuitbreaker.Config{FailureThreshold: 1, OpenDuration: time.Minute},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ticket, err := e.Acquire("a")
		require.NoError(t, err)
		e.Record(ticket, Outcome{Provider: "a", Kind: providers.KindCanceled, Attempts: 1})
	}

	b := e.Breaker("a")
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.Zero(t, b.ConsecutiveFailures())

	snap := e.Snapshot()[0].Stats
	assert.Equal(t, int64(3), snap.Requests)
	assert.Zero(t, snap.Failures)
	assert.Equal(t, int64(3), snap.ErrorsByKind["canceled"])
	assert.Empty(t, snap.LastError)
}
