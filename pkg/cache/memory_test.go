package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Symbol string  `json:"symbol"`
		Value  float64 `json:"value"`
	}

	require.NoError(t, mc.Set(ctx, "k", payload{Symbol: "BTC", Value: 1.5}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, "BTC", got.Symbol)
	assert.Equal(t, 1.5, got.Value)
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := newTestCache(t)

	var got string
	err := mc.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	var got string
	err := mc.Get(ctx, "k", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDeleteAndExists(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", 0))

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "k"))
	ok, err = mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheLockExpires(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "flow:BTC:24h", Key("flow", "BTC", "24h"))
	assert.Equal(t, "flow", Key("flow"))
}
