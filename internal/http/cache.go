package http

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// CacheController sits between the transport and the cache tiers. It
// decides which requests are cacheable and with what TTL, builds
// canonical cache keys, and invalidates cached reads after mutations.
type CacheController struct {
	front  *spot.MemoryCache
	store  spot.Cache
	chain  *spot.CacheChain
	config *spot.CacheConfig
}

// NewCacheController wires a front (in-process) tier and a durable
// store tier behind one controller. store may be nil for a
// front-only cache.
func NewCacheController(config *spot.CacheConfig, store spot.Cache) *CacheController {
	if config == nil {
		config = spot.DefaultCacheConfig()
	}

	frontMax := config.FrontMaxEntries
	if frontMax <= 0 {
		frontMax = constants.FrontCacheMaxEntries
	}

	front := spot.NewMemoryCache(frontMax)

	tiers := []spot.Cache{front}
	if store != nil {
		tiers = append(tiers, store)
	}

	return &CacheController{
		front:  front,
		store:  store,
		chain:  spot.NewCacheChain(tiers...),
		config: config,
	}
}

// TTL returns the cache TTL for a request, or zero when the request
// must not be cached. Only GET requests are cacheable. Override
// resolution: exact "METHOD:path" first, then the longest matching
// "METHOD:/prefix/*" wildcard, then the default TTL.
func (c *CacheController) TTL(method, path string) time.Duration {
	if !c.config.Enabled || method != "GET" {
		return 0
	}

	exact := method + ":" + path
	if ttl, ok := c.config.TTLOverrides[exact]; ok {
		return ttl
	}

	bestLen := -1
	bestTTL := time.Duration(0)

	for pattern, ttl := range c.config.TTLOverrides {
		prefix, ok := strings.CutSuffix(pattern, "*")
		if !ok || !strings.HasPrefix(exact, prefix) {
			continue
		}

		if len(prefix) > bestLen {
			bestLen = len(prefix)
			bestTTL = ttl
		}
	}

	if bestLen >= 0 {
		return bestTTL
	}

	if c.config.DefaultTTL > 0 {
		return c.config.DefaultTTL
	}

	return constants.DefaultCacheTTL
}

// Key builds the canonical cache key for a request:
// "METHOD:path:query-json:body-json" with object keys sorted and no
// insignificant whitespace, so equivalent requests collide.
func (c *CacheController) Key(method, path string, query map[string]string, body any) string {
	return method + ":" + path + ":" + canonicalJSON(query) + ":" + canonicalJSON(body)
}

// canonicalJSON renders v as compact JSON with sorted object keys.
// Nil (and unmarshalable) values render as an empty object.
func canonicalJSON(v any) string {
	if v == nil {
		return "{}"
	}

	if m, ok := v.(map[string]string); ok && len(m) == 0 {
		return "{}"
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}

	// encoding/json already sorts map keys; re-encode through a
	// generic value so struct bodies get sorted keys too.
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return "{}"
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return "{}"
	}

	return string(out)
}

// Get returns the cached payload for key, trying the front tier
// first and backfilling it from the durable tier on a hit there.
func (c *CacheController) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, err := c.chain.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	return entry.Data, true
}

// Set stores a payload in both tiers and prunes the durable tier to
// its entry limit.
func (c *CacheController) Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	now := time.Now()
	entry := &spot.CacheEntry{
		Data:      data,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_ = c.chain.Set(ctx, key, entry)

	if c.store != nil {
		maxEntries := c.config.MaxEntries
		if maxEntries <= 0 {
			maxEntries = constants.DefaultCacheMaxEntries
		}

		_ = c.store.Prune(ctx, maxEntries)
	}
}

// InvalidateAfterMutation drops every cached GET under the mutated
// path's resource root (its first three segments) from both tiers.
// Invalidation is deliberately coarse: a mutation anywhere under
// /apis/<group>/<version> clears that group's cached reads. Paths
// shorter than three segments (the token exchange endpoint) are not
// API resources and invalidate nothing.
func (c *CacheController) InvalidateAfterMutation(ctx context.Context, path string) error {
	root, ok := resourceRoot(path)
	if !ok {
		return nil
	}

	if err := c.chain.DeletePrefix(ctx, "GET:"+root); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// Clear empties both tiers.
func (c *CacheController) Clear(ctx context.Context) error {
	return c.chain.Clear(ctx)
}

// resourceRoot returns "/" plus the first three path segments. ok is
// false for paths with fewer than three segments.
func resourceRoot(path string) (string, bool) {
	segments := make([]string, 0, 3)

	for _, segment := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if segment == "" {
			continue
		}

		segments = append(segments, segment)
		if len(segments) == 3 {
			break
		}
	}

	if len(segments) < 3 {
		return "", false
	}

	return "/" + strings.Join(segments, "/"), true
}
