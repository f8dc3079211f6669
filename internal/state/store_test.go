package state

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStorePreferences(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	value, err := store.GetPreference(ctx, "org")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetPreference(ctx, "org", "my-org"))
	require.NoError(t, store.SetPreference(ctx, "org", "other-org"))

	value, err = store.GetPreference(ctx, "org")
	require.NoError(t, err)
	assert.Equal(t, "other-org", value)
}

func TestStorePreferenceJSON(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	type prefs struct {
		Region string `json:"region"`
		Limit  int    `json:"limit"`
	}

	var out prefs

	found, err := store.GetPreferenceJSON(ctx, "defaults", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetPreferenceJSON(ctx, "defaults", prefs{Region: "us-central-dfw-1", Limit: 5}))

	found, err = store.GetPreferenceJSON(ctx, "defaults", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "us-central-dfw-1", out.Region)
	assert.Equal(t, 5, out.Limit)
}

func TestStoreCacheRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	cache := store.Cache()
	ctx := context.Background()

	_, err := cache.Get(ctx, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}")
	assert.ErrorIs(t, err, spot.ErrCacheKeyNotFound)

	entry := &spot.CacheEntry{
		Data:      json.RawMessage(`{"items":[]}`),
		ExpiresAt: time.Now().Add(time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, cache.Set(ctx, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}", entry))

	got, err := cache.Get(ctx, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(got.Data))
	assert.True(t, cache.Has(ctx, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}"))
}

func TestStoreCacheExpiry(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	cache := store.Cache()
	ctx := context.Background()

	entry := &spot.CacheEntry{
		Data:      json.RawMessage(`{}`),
		ExpiresAt: time.Now().Add(-time.Second),
		CreatedAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, cache.Set(ctx, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}", entry))

	_, err := cache.Get(ctx, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}")
	assert.ErrorIs(t, err, spot.ErrCacheEntryExpired)

	// The expired row is removed on read.
	count, err := store.CacheLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreCacheDeletePrefix(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	cache := store.Cache()
	ctx := context.Background()

	entry := &spot.CacheEntry{
		Data:      json.RawMessage(`{}`),
		ExpiresAt: time.Now().Add(time.Minute),
		CreatedAt: time.Now(),
	}
	keys := []string{
		`GET:/apis/ngpc.rxt.io/v1/namespaces/org-a/cloudspaces:{}:{}`,
		`GET:/apis/ngpc.rxt.io/v1/namespaces/org-a/cloudspaces/demo:{}:{}`,
		`GET:/apis/ngpc.rxt.io/v1/regions:{}:{}`,
	}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, entry))
	}

	require.NoError(t, cache.DeletePrefix(ctx, "GET:/apis/ngpc.rxt.io/v1/namespaces"))

	assert.False(t, cache.Has(ctx, keys[0]))
	assert.False(t, cache.Has(ctx, keys[1]))
	assert.True(t, cache.Has(ctx, keys[2]))
}

func TestStoreCachePruneToLimit(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for i := range 10 {
		entry := &spot.CacheEntry{
			Data:      json.RawMessage(`{}`),
			ExpiresAt: time.Now().Add(time.Minute),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.CacheSet(ctx, fmt.Sprintf("GET:/apis/ngpc.rxt.io/v1/regions/%d:{}:{}", i), entry))
	}

	require.NoError(t, store.CachePruneToLimit(ctx, 4))

	count, err := store.CacheLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// Newest-created entries survive.
	assert.True(t, store.Cache().Has(ctx, "GET:/apis/ngpc.rxt.io/v1/regions/9:{}:{}"))
	assert.False(t, store.Cache().Has(ctx, "GET:/apis/ngpc.rxt.io/v1/regions/0:{}:{}"))
}

func TestStoreHistory(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.HistoryAdd(ctx, "serverclasses list", "my-org", 0))
	require.NoError(t, store.HistoryAdd(ctx, "regions list", "my-org", 0))
	require.NoError(t, store.HistoryAdd(ctx, "serverclasses list", "my-org", 1))

	entries, err := store.HistoryList(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "serverclasses list", entries[0].Command)
	assert.Equal(t, 1, entries[0].ExitCode)

	suggestions, err := store.HistorySuggest(ctx, "server", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"serverclasses list"}, suggestions)

	count, err := store.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.HistoryClear(ctx))

	count, err = store.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreRegistrationLedger(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.RegistrationGet(ctx, "vmreg-missing")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	reg := &Registration{
		Key:          "vmreg-0123456789abcdef0123456789abcdef",
		VMUID:        "server-1",
		VMName:       "worker-1",
		OrgID:        "org-abc123",
		VMCloudspace: "demo",
		VMPool:       "pool-a",
		Status:       RegistrationDiscovered,
		Payload:      map[string]any{"source": "discovery"},
	}
	require.NoError(t, store.RegistrationUpsert(ctx, reg))

	// Moving to token_issued records the token; a later transition
	// without token fields keeps them.
	reg.Status = RegistrationTokenIssued
	reg.TokenID = "tok-1"
	reg.TokenExpiresAt = time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.RegistrationUpsert(ctx, reg))

	reg.Status = RegistrationRegistered
	reg.TokenID = ""
	reg.TokenExpiresAt = time.Time{}
	require.NoError(t, store.RegistrationUpsert(ctx, reg))

	got, err := store.RegistrationGet(ctx, reg.Key)
	require.NoError(t, err)
	assert.Equal(t, RegistrationRegistered, got.Status)
	assert.Equal(t, "tok-1", got.TokenID)
	assert.False(t, got.TokenExpiresAt.IsZero())
	assert.Equal(t, map[string]any{"source": "discovery"}, got.Payload)

	regs, err := store.RegistrationList(ctx, "demo", "")
	require.NoError(t, err)
	require.Len(t, regs, 1)

	regs, err = store.RegistrationList(ctx, "demo", RegistrationRegistered)
	require.NoError(t, err)
	require.Len(t, regs, 1)

	regs, err = store.RegistrationList(ctx, "other", "")
	require.NoError(t, err)
	assert.Empty(t, regs)
}
