package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockrouting "mercator-hq/relay/internal/routing"
	"mercator-hq/relay/pkg/cache"
	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/routing/strategies"
)

// replica is one relay instance: its own engine, fast tier and provider,
// with a shared tier on the given redis.
type replica struct {
	cache    *cache.Manager
	provider *mockrouting.MockProvider
	orch     *Orchestrator
}

func newReplica(t *testing.T, mr *miniredis.Miniredis) *replica {
	t.Helper()

	engine, err := routing.NewEngine([]routing.Descriptor{{ID: "a"}}, routing.Config{
		Strategy: strategies.Failover,
		Breaker:  circuitbreaker.Config{FailureThreshold: 3, OpenDuration: time.Minute},
	})
	require.NoError(t, err)

	fast, err := cache.NewFastTier(64, 2)
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	shared := cache.NewRedisTierFromClient(client, "relay:")

	manager := cache.NewManager(fast, shared, cache.Options{
		DefaultTTL: time.Minute,
		MaxTTL:     time.Hour,
		OpTimeout:  time.Second,
		Cooldown:   time.Second,
	})
	t.Cleanup(func() { _ = manager.Close() })

	p := mockrouting.NewMockProvider("a")
	return &replica{
		cache:    manager,
		provider: p,
		orch:     New(engine, mockrouting.Registry{"a": p}, defaultConfig(), WithCache(manager)),
	}
}

func TestHandle_SharedTierServesOtherReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	first := newReplica(t, mr)
	res, err := first.orch.Handle(ctx, request("hello"))
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, res.Metadata.CacheStatus)
	// closing drains the queued shared write
	require.NoError(t, first.cache.Close())

	second := newReplica(t, mr)
	res, err = second.orch.Handle(ctx, request("hello"))
	require.NoError(t, err)
	assert.Equal(t, CacheHit, res.Metadata.CacheStatus)
	assert.Equal(t, cache.TierShared, res.Metadata.CacheTier)
	assert.Equal(t, "a response 1", res.Response.Content)
	assert.Zero(t, second.provider.Calls())

	// promoted into the second replica's fast tier
	res, err = second.orch.Handle(ctx, request("hello"))
	require.NoError(t, err)
	assert.Equal(t, cache.TierFast, res.Metadata.CacheTier)
}

func TestHandle_SharedTierOutageFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	r := newReplica(t, mr)
	mr.Close()

	for i := 1; i <= 2; i++ {
		res, err := r.orch.Handle(ctx, request("hello"))
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, CacheMiss, res.Metadata.CacheStatus)
		} else {
			assert.Equal(t, CacheHit, res.Metadata.CacheStatus)
			assert.Equal(t, cache.TierFast, res.Metadata.CacheTier)
		}
	}
	assert.Equal(t, 1, r.provider.Calls())
}
