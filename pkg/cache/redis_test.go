package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisTier(t *testing.T, clock *fakeClock) (*RedisTier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	tier := NewRedisTierFromClient(client, "test:")
	tier.now = clock.Now
	return tier, mr
}

func TestRedisTier_SetGetDelete(t *testing.T) {
	clock := newFakeClock()
	tier, mr := newTestRedisTier(t, clock)
	defer tier.Close()
	ctx := context.Background()

	e := entryAt("abc", clock.Now(), time.Minute)
	require.NoError(t, tier.Set(ctx, e))
	assert.True(t, mr.Exists("test:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:abc"))

	got, err := tier.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, TierShared, got.Tier)
	assert.Equal(t, "abc", got.Response.Content)
	assert.True(t, got.CreatedAt.Equal(e.CreatedAt))
	assert.Equal(t, time.Minute, got.TTL)

	require.NoError(t, tier.Delete(ctx, "abc"))
	_, err = tier.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is fine
	require.NoError(t, tier.Delete(ctx, "abc"))
}

func TestRedisTier_TTLIsRemainingLifetime(t *testing.T) {
	clock := newFakeClock()
	tier, mr := newTestRedisTier(t, clock)
	defer tier.Close()
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entryAt("abc", clock.Now().Add(-10*time.Second), time.Minute)))
	assert.Equal(t, 50*time.Second, mr.TTL("test:abc"))

	mr.FastForward(50 * time.Second)
	_, err := tier.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisTier_SkipsExpiredWrites(t *testing.T) {
	clock := newFakeClock()
	tier, mr := newTestRedisTier(t, clock)
	defer tier.Close()

	require.NoError(t, tier.Set(context.Background(), entryAt("old", clock.Now().Add(-time.Hour), time.Minute)))
	assert.False(t, mr.Exists("test:old"))
}

func TestRedisTier_ExpiredPayloadIsMiss(t *testing.T) {
	clock := newFakeClock()
	tier, _ := newTestRedisTier(t, clock)
	defer tier.Close()
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entryAt("abc", clock.Now(), time.Minute)))
	clock.Advance(time.Minute)

	_, err := tier.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisTier_CorruptPayload(t *testing.T) {
	clock := newFakeClock()
	tier, mr := newTestRedisTier(t, clock)
	defer tier.Close()

	require.NoError(t, mr.Set("test:bad", "not json"))
	_, err := tier.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewRedisTier_InvalidURL(t *testing.T) {
	_, err := NewRedisTier("://nope", "p:")
	assert.Error(t, err)
}

func TestNewRedisTier_UnreachableStartsDegraded(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	tier, err := NewRedisTier("redis://"+addr+"/0", "p:")
	require.NoError(t, err)
	defer tier.Close()
	assert.Equal(t, "redis", tier.Name())
}

func TestManager_RedisPromotion(t *testing.T) {
	clock := newFakeClock()
	tier, _ := newTestRedisTier(t, clock)
	m := newTestManager(t, tier, clock, Options{})
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entryAt("abc", clock.Now().Add(-10*time.Second), 60*time.Second)))

	e, ok := m.Lookup(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, TierShared, e.Tier)

	promoted, ok := m.fast.Get("abc")
	require.True(t, ok)
	assert.True(t, promoted.ExpiresAt().Equal(clock.Now().Add(50*time.Second)))
}

func TestManager_RedisUnreachableDegrades(t *testing.T) {
	clock := newFakeClock()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	tier := NewRedisTierFromClient(client, "test:")
	tier.now = clock.Now
	obs := newCountingObserver()
	m := newTestManager(t, tier, clock, Options{Observer: obs, OpTimeout: time.Second})
	ctx := context.Background()

	mr.Close()

	_, ok := m.Lookup(ctx, "abc")
	assert.False(t, ok)
	assert.False(t, m.shared.available(), "refused connection should start the cooldown")

	_, err = m.Store(ctx, "abc", response("x"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, m.flush(ctx))

	e, ok := m.Lookup(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, TierFast, e.Tier)
}
