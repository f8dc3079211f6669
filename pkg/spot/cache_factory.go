package spot

import (
	"context"
	"fmt"
	"time"
)

// CacheType represents the durable cache backend.
type CacheType string

const (
	// CacheTypeSQLite stores entries in the client's sqlite state
	// store. This is the default.
	CacheTypeSQLite CacheType = "sqlite"

	// CacheTypeMemory keeps the durable tier in-process only.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS stores entries in a NATS JetStream key/value
	// bucket.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone disables the durable tier.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures response caching.
type CacheConfig struct {
	// Enabled turns response caching on. DefaultCacheConfig enables
	// it; a zero CacheConfig disables caching entirely.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Type selects the durable tier backend.
	Type CacheType `yaml:"type,omitempty" json:"type,omitempty"`

	// DefaultTTL applies to cacheable reads without an override.
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// TTLOverrides maps "METHOD:path" (exact) or "METHOD:/prefix/*"
	// (wildcard) to a TTL. Exact entries win; among wildcards the
	// longest matching prefix wins.
	TTLOverrides map[string]time.Duration `yaml:"ttl_overrides,omitempty" json:"ttl_overrides,omitempty"`

	// MaxEntries bounds the durable tier; oldest-created entries are
	// evicted first.
	MaxEntries int `yaml:"max_entries" json:"max_entries"`

	// FrontMaxEntries bounds the in-process front tier.
	FrontMaxEntries int `yaml:"front_max_entries" json:"front_max_entries"`

	// NATS configures the NATS backend when Type is CacheTypeNATS.
	NATS *NATSKVConfig `yaml:"nats,omitempty" json:"nats,omitempty"`
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:         true,
		Type:            CacheTypeSQLite,
		DefaultTTL:      30 * time.Second,
		MaxEntries:      512,
		FrontMaxEntries: 2048,
	}
}

// NewCacheFromConfig creates a durable cache backend from
// configuration. CacheTypeSQLite is constructed by the client from
// its state store and is rejected here.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		maxEntries := config.MaxEntries
		if maxEntries <= 0 {
			maxEntries = DefaultCacheConfig().MaxEntries
		}

		return NewMemoryCache(maxEntries), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that stores nothing.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// DeletePrefix does nothing.
func (c *NoOpCache) DeletePrefix(ctx context.Context, prefix string) error {
	return nil
}

// Prune does nothing.
func (c *NoOpCache) Prune(ctx context.Context, maxEntries int) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheChain layers cache tiers (front first). Reads backfill earlier
// tiers; writes and invalidations fan out to every tier.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get retrieves an entry from the first tier holding it, populating
// earlier tiers on the way out.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := range i {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an entry in every tier.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Set(ctx, key, entry); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Delete removes a key from every tier.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// DeletePrefix removes matching keys from every tier.
func (c *CacheChain) DeletePrefix(ctx context.Context, prefix string) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.DeletePrefix(ctx, prefix); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Prune prunes every tier to maxEntries.
func (c *CacheChain) Prune(ctx context.Context, maxEntries int) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Prune(ctx, maxEntries); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Clear clears every tier.
func (c *CacheChain) Clear(ctx context.Context) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Clear(ctx); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Has reports whether any tier holds the key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
