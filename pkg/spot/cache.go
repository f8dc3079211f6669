package spot

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// CacheEntry is one cached response payload.
type CacheEntry struct {
	// Data is the cached payload, immutable once written.
	Data []byte

	// ExpiresAt is the instant the entry becomes stale.
	ExpiresAt time.Time

	// CreatedAt orders entries for size-based pruning.
	CreatedAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Cache is a key/value store for response payloads. Implementations
// must be safe for concurrent use.
type Cache interface {
	// Get returns the entry for key, or ErrCacheKeyNotFound /
	// ErrCacheEntryExpired. Expired entries are deleted on access.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores an entry, replacing any previous entry for key.
	Set(ctx context.Context, key string, entry *CacheEntry) error

	// Delete removes one key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key beginning with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Prune evicts oldest-created entries until at most maxEntries
	// remain.
	Prune(ctx context.Context, maxEntries int) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Has reports whether key is present and unexpired.
	Has(ctx context.Context, key string) bool
}

// MemoryCache is a bounded in-process cache with least-recently-used
// eviction. It is the front tier in a two-tier cache chain.
type MemoryCache struct {
	mu       sync.Mutex
	maxSize  int
	order    *list.List
	elements map[string]*list.Element
}

type memoryCacheItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache creates a memory cache holding at most maxSize
// entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize < 1 {
		maxSize = 1
	}

	return &MemoryCache{
		maxSize:  maxSize,
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

// Get retrieves an entry and marks it most recently used.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.elements[key]
	if !ok {
		return nil, ErrCacheKeyNotFound
	}

	item := element.Value.(*memoryCacheItem)
	if item.entry.Expired(time.Now()) {
		c.remove(element)

		return nil, ErrCacheEntryExpired
	}

	c.order.MoveToFront(element)

	return item.entry, nil
}

// Set stores an entry, evicting the least recently used entries when
// the cache is full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.elements[key]; ok {
		element.Value.(*memoryCacheItem).entry = entry
		c.order.MoveToFront(element)

		return nil
	}

	c.elements[key] = c.order.PushFront(&memoryCacheItem{key: key, entry: entry})

	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
	}

	return nil
}

// Delete removes one key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.elements[key]; ok {
		c.remove(element)
	}

	return nil
}

// DeletePrefix removes every key beginning with prefix.
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, element := range c.elements {
		if strings.HasPrefix(key, prefix) {
			c.remove(element)
		}
	}

	return nil
}

// Prune evicts oldest-created entries until at most maxEntries remain.
func (c *MemoryCache) Prune(ctx context.Context, maxEntries int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if maxEntries < 0 {
		maxEntries = 0
	}

	for c.order.Len() > maxEntries {
		oldest := c.order.Back()

		for element := c.order.Back(); element != nil; element = element.Prev() {
			if element.Value.(*memoryCacheItem).entry.CreatedAt.Before(oldest.Value.(*memoryCacheItem).entry.CreatedAt) {
				oldest = element
			}
		}

		c.remove(oldest)
	}

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.elements = make(map[string]*list.Element)

	return nil
}

// Has reports whether key is present and unexpired.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.elements[key]
	if !ok {
		return false
	}

	return !element.Value.(*memoryCacheItem).entry.Expired(time.Now())
}

// Len returns the number of entries currently held, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *MemoryCache) remove(element *list.Element) {
	if element == nil {
		return
	}

	delete(c.elements, element.Value.(*memoryCacheItem).key)
	c.order.Remove(element)
}
