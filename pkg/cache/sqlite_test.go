package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteTier(t *testing.T, clock *fakeClock) *SQLiteTier {
	t.Helper()
	tier, err := NewSQLiteTier(filepath.Join(t.TempDir(), "nested", "cache.db"), time.Second)
	require.NoError(t, err)
	tier.now = clock.Now
	t.Cleanup(func() { _ = tier.Close() })
	return tier
}

func TestSQLiteTier_SetGetDelete(t *testing.T) {
	clock := newFakeClock()
	tier := newTestSQLiteTier(t, clock)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entryAt("abc", clock.Now(), time.Minute)))

	got, err := tier.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, TierShared, got.Tier)
	assert.Equal(t, "abc", got.Response.Content)

	// replace keeps a single row
	newer := entryAt("abc", clock.Now().Add(time.Second), time.Minute)
	newer.Response = response("newer")
	require.NoError(t, tier.Set(ctx, newer))
	n, err := tier.count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = tier.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Response.Content)

	require.NoError(t, tier.Delete(ctx, "abc"))
	_, err = tier.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteTier_ExpiryAndPurge(t *testing.T) {
	clock := newFakeClock()
	tier := newTestSQLiteTier(t, clock)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entryAt("short", clock.Now(), time.Second)))
	require.NoError(t, tier.Set(ctx, entryAt("long", clock.Now(), time.Hour)))

	clock.Advance(time.Second)

	_, err := tier.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	purged, err := tier.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	n, err := tier.count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteTier_SkipsExpiredWrites(t *testing.T) {
	clock := newFakeClock()
	tier := newTestSQLiteTier(t, clock)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entryAt("old", clock.Now().Add(-time.Hour), time.Minute)))
	n, err := tier.count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManager_SQLitePurge(t *testing.T) {
	clock := newFakeClock()
	tier := newTestSQLiteTier(t, clock)
	m := newTestManager(t, tier, clock, Options{})
	ctx := context.Background()

	_, err := m.Store(ctx, "a", response("a"), time.Second)
	require.NoError(t, err)
	_, err = m.Store(ctx, "b", response("b"), time.Hour)
	require.NoError(t, err)
	require.NoError(t, m.flush(ctx))

	clock.Advance(2 * time.Second)
	fast, shared := m.PurgeExpired(ctx)
	assert.Equal(t, 1, fast)
	assert.Equal(t, int64(1), shared)
}
