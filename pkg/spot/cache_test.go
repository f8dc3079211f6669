package spot_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

func freshEntry(data string) *spot.CacheEntry {
	return &spot.CacheEntry{
		Data:      []byte(data),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func TestMemoryCacheSetAndGet(t *testing.T) {
	t.Parallel()

	cache := spot.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", freshEntry("payload")))

	entry, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), entry.Data)

	_, err = cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, spot.ErrCacheKeyNotFound)
}

func TestMemoryCacheExpiredEntryDeletedOnRead(t *testing.T) {
	t.Parallel()

	cache := spot.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stale", &spot.CacheEntry{
		Data:      []byte("old"),
		ExpiresAt: time.Now().Add(-time.Second),
		CreatedAt: time.Now().Add(-time.Minute),
	}))

	_, err := cache.Get(ctx, "stale")
	assert.ErrorIs(t, err, spot.ErrCacheEntryExpired)
	assert.False(t, cache.Has(ctx, "stale"))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := spot.NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", freshEntry("a")))
	require.NoError(t, cache.Set(ctx, "b", freshEntry("b")))

	// Touch "a" so "b" is the eviction candidate.
	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "c", freshEntry("c")))

	assert.True(t, cache.Has(ctx, "a"))
	assert.False(t, cache.Has(ctx, "b"))
	assert.True(t, cache.Has(ctx, "c"))
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	t.Parallel()

	cache := spot.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "GET:/apis/ngpc.rxt.io/v1/regions", freshEntry("r")))
	require.NoError(t, cache.Set(ctx, "GET:/apis/ngpc.rxt.io/v1/serverclasses", freshEntry("s")))
	require.NoError(t, cache.Set(ctx, "GET:/apis/auth.ngpc.rxt.io/v1/organizations", freshEntry("o")))

	require.NoError(t, cache.DeletePrefix(ctx, "GET:/apis/ngpc.rxt.io/"))

	assert.False(t, cache.Has(ctx, "GET:/apis/ngpc.rxt.io/v1/regions"))
	assert.False(t, cache.Has(ctx, "GET:/apis/ngpc.rxt.io/v1/serverclasses"))
	assert.True(t, cache.Has(ctx, "GET:/apis/auth.ngpc.rxt.io/v1/organizations"))
}

func TestMemoryCachePruneEvictsOldestCreated(t *testing.T) {
	t.Parallel()

	cache := spot.NewMemoryCache(10)
	ctx := context.Background()
	base := time.Now()

	for i := range 5 {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("key%d", i), &spot.CacheEntry{
			Data:      []byte{byte(i)},
			ExpiresAt: base.Add(time.Hour),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, cache.Prune(ctx, 2))

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, "key3"))
	assert.True(t, cache.Has(ctx, "key4"))
	assert.False(t, cache.Has(ctx, "key0"))
}

func TestMemoryCacheClear(t *testing.T) {
	t.Parallel()

	cache := spot.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", freshEntry("a")))
	require.NoError(t, cache.Set(ctx, "b", freshEntry("b")))

	require.NoError(t, cache.Clear(ctx))

	assert.Equal(t, 0, cache.Len())
	assert.False(t, cache.Has(ctx, "a"))
}

func TestCacheChainBackfillsEarlierTiers(t *testing.T) {
	t.Parallel()

	front := spot.NewMemoryCache(10)
	store := spot.NewMemoryCache(10)
	chain := spot.NewCacheChain(front, store)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", freshEntry("durable")))

	entry, err := chain.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), entry.Data)

	// The miss in the front tier was backfilled by the read.
	assert.True(t, front.Has(ctx, "key"))

	_, err = chain.Get(ctx, "absent")
	assert.ErrorIs(t, err, spot.ErrKeyNotFoundInAnyCache)
}
