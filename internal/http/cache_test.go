package http_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spothttp "github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

func TestCacheControllerTTL(t *testing.T) {
	t.Parallel()

	config := &spot.CacheConfig{
		Enabled:    true,
		DefaultTTL: 30 * time.Second,
		TTLOverrides: map[string]time.Duration{
			"GET:/apis/ngpc.rxt.io/v1/regions":       5 * time.Minute,
			"GET:/apis/ngpc.rxt.io/v1/serverclass*":  time.Minute,
			"GET:/apis/ngpc.rxt.io/v1/serverclasses": 2 * time.Minute,
			"GET:/apis/*":                            45 * time.Second,
		},
	}
	controller := spothttp.NewCacheController(config, nil)

	// Mutations are never cached.
	assert.Zero(t, controller.TTL("POST", "/apis/ngpc.rxt.io/v1/regions"))
	assert.Zero(t, controller.TTL("DELETE", "/apis/ngpc.rxt.io/v1/regions"))

	// Exact override beats wildcards.
	assert.Equal(t, 5*time.Minute, controller.TTL("GET", "/apis/ngpc.rxt.io/v1/regions"))
	assert.Equal(t, 2*time.Minute, controller.TTL("GET", "/apis/ngpc.rxt.io/v1/serverclasses"))

	// Longest matching wildcard wins.
	assert.Equal(t, time.Minute, controller.TTL("GET", "/apis/ngpc.rxt.io/v1/serverclasses/gp.vs1.large-dfw"))
	assert.Equal(t, 45*time.Second, controller.TTL("GET", "/apis/auth.ngpc.rxt.io/v1/organizations"))

	// Default TTL everywhere else.
	assert.Equal(t, 30*time.Second, controller.TTL("GET", "/other/path"))
}

func TestCacheControllerTTLDisabled(t *testing.T) {
	t.Parallel()

	controller := spothttp.NewCacheController(&spot.CacheConfig{Enabled: false}, nil)
	assert.Zero(t, controller.TTL("GET", "/apis/ngpc.rxt.io/v1/regions"))
}

func TestCacheControllerKey(t *testing.T) {
	t.Parallel()

	controller := spothttp.NewCacheController(spot.DefaultCacheConfig(), nil)

	// Nil query and body normalize to empty objects.
	key := controller.Key("GET", "/apis/ngpc.rxt.io/v1/regions", nil, nil)
	assert.Equal(t, "GET:/apis/ngpc.rxt.io/v1/regions:{}:{}", key)

	// Query keys are sorted, so insertion order cannot matter.
	first := controller.Key("GET", "/p", map[string]string{"b": "2", "a": "1"}, nil)
	second := controller.Key("GET", "/p", map[string]string{"a": "1", "b": "2"}, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, `GET:/p:{"a":"1","b":"2"}:{}`, first)

	// Struct bodies canonicalize the same as equivalent maps.
	type body struct {
		Name   string `json:"name"`
		Region string `json:"region"`
	}

	fromStruct := controller.Key("GET", "/p", nil, body{Name: "demo", Region: "dfw"})
	fromMap := controller.Key("GET", "/p", nil, map[string]string{"region": "dfw", "name": "demo"})
	assert.Equal(t, fromMap, fromStruct)
}

func TestCacheControllerFrontBackfill(t *testing.T) {
	t.Parallel()

	store := spot.NewMemoryCache(16)
	controller := spothttp.NewCacheController(spot.DefaultCacheConfig(), store)
	ctx := context.Background()

	key := controller.Key("GET", "/apis/ngpc.rxt.io/v1/regions", nil, nil)

	// Seed only the durable tier, as another process would.
	entry := &spot.CacheEntry{
		Data:      json.RawMessage(`{"items":[1]}`),
		ExpiresAt: time.Now().Add(time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Set(ctx, key, entry))

	data, ok := controller.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[1]}`, string(data))

	// The hit backfills the front tier; dropping the durable copy
	// must not cause a miss.
	require.NoError(t, store.Delete(ctx, key))

	data, ok = controller.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[1]}`, string(data))
}

func TestCacheControllerSetWritesBothTiers(t *testing.T) {
	t.Parallel()

	store := spot.NewMemoryCache(16)
	controller := spothttp.NewCacheController(spot.DefaultCacheConfig(), store)
	ctx := context.Background()

	key := controller.Key("GET", "/apis/ngpc.rxt.io/v1/regions", nil, nil)
	controller.Set(ctx, key, json.RawMessage(`{}`), time.Minute)

	assert.True(t, store.Has(ctx, key))

	data, ok := controller.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{}`, string(data))
}

func TestCacheControllerInvalidateAfterMutation(t *testing.T) {
	t.Parallel()

	store := spot.NewMemoryCache(16)
	controller := spothttp.NewCacheController(spot.DefaultCacheConfig(), store)
	ctx := context.Background()

	listKey := controller.Key("GET", "/apis/ngpc.rxt.io/v1/namespaces/org/cloudspaces", nil, nil)
	itemKey := controller.Key("GET", "/apis/ngpc.rxt.io/v1/namespaces/org/cloudspaces/demo", nil, nil)
	otherKey := controller.Key("GET", "/apis/auth.ngpc.rxt.io/v1/organizations", nil, nil)

	for _, key := range []string{listKey, itemKey, otherKey} {
		controller.Set(ctx, key, json.RawMessage(`{}`), time.Minute)
	}

	// A mutation clears everything under its first three path
	// segments, in both tiers.
	require.NoError(t, controller.InvalidateAfterMutation(ctx, "/apis/ngpc.rxt.io/v1/namespaces/org/cloudspaces/demo"))

	_, ok := controller.Get(ctx, listKey)
	assert.False(t, ok)
	_, ok = controller.Get(ctx, itemKey)
	assert.False(t, ok)
	assert.False(t, store.Has(ctx, itemKey))

	// Unrelated resource roots survive.
	_, ok = controller.Get(ctx, otherKey)
	assert.True(t, ok)

	// Paths shorter than three segments are not API resources and
	// invalidate nothing.
	require.NoError(t, controller.InvalidateAfterMutation(ctx, "/oauth/token"))

	_, ok = controller.Get(ctx, otherKey)
	assert.True(t, ok)
}
