package spot

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSKVConfig configures the NATS JetStream key/value cache backend.
type NATSKVConfig struct {
	// URL is the NATS server URL.
	URL string `yaml:"url" json:"url"`

	// Bucket is the key/value bucket name. Defaults to "rsspot-cache".
	Bucket string `yaml:"bucket,omitempty" json:"bucket,omitempty"`

	// CredsFile is an optional NATS credentials file.
	CredsFile string `yaml:"creds_file,omitempty" json:"creds_file,omitempty"`

	// Token is an optional authentication token.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// BucketTTL caps how long the bucket retains entries, independent
	// of per-entry expiry. Zero keeps entries until invalidated.
	BucketTTL time.Duration `yaml:"bucket_ttl,omitempty" json:"bucket_ttl,omitempty"`
}

const defaultNATSBucket = "rsspot-cache"

// natsKVEntry is the stored envelope. Per-entry expiry rides inside
// the value because bucket TTL is shared across all keys.
type natsKVEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// NATSKVCache stores cache entries in a NATS JetStream key/value
// bucket so multiple processes can share one response cache.
type NATSKVCache struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
}

// NewNATSKVCache connects to NATS and binds (or creates) the
// configured bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil || config.URL == "" {
		return nil, ErrNATSConfigRequired
	}

	opts := []nats.Option{
		nats.Name("rsspot-cache"),
		nats.MaxReconnects(-1),
	}
	if config.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(config.CredsFile))
	}

	if config.Token != "" {
		opts = append(opts, nats.Token(config.Token))
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	bucketName := config.Bucket
	if bucketName == "" {
		bucketName = defaultNATSBucket
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bucket, err := js.KeyValue(ctx, bucketName)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket: bucketName,
			TTL:    config.BucketTTL,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("binding KV bucket %s: %w", bucketName, err)
	}

	return &NATSKVCache{conn: conn, bucket: bucket}, nil
}

// encodeKey hex-encodes cache keys so arbitrary characters fit the KV
// key charset. Hex keeps byte-prefix relationships, which
// DeletePrefix relies on.
func encodeKey(key string) string {
	return hex.EncodeToString([]byte(key))
}

// Get retrieves an entry, lazily deleting it when expired.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.bucket.Get(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrCacheKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading KV entry: %w", err)
	}

	var stored natsKVEntry
	if err := json.Unmarshal(kvEntry.Value(), &stored); err != nil {
		_ = c.bucket.Delete(ctx, encodeKey(key))

		return nil, ErrCacheKeyNotFound
	}

	entry := &CacheEntry{
		Data:      stored.Data,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}
	if entry.Expired(time.Now()) {
		_ = c.bucket.Delete(ctx, encodeKey(key))

		return nil, ErrCacheEntryExpired
	}

	return entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	payload, err := json.Marshal(natsKVEntry{
		Data:      entry.Data,
		ExpiresAt: entry.ExpiresAt,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding KV entry: %w", err)
	}

	if _, err := c.bucket.Put(ctx, encodeKey(key), payload); err != nil {
		return fmt.Errorf("writing KV entry: %w", err)
	}

	return nil
}

// Delete removes a key.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.bucket.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting KV entry: %w", err)
	}

	return nil
}

// DeletePrefix removes every key with the given prefix.
func (c *NATSKVCache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}

	encodedPrefix := encodeKey(prefix)
	for _, key := range keys {
		if strings.HasPrefix(key, encodedPrefix) {
			if err := c.bucket.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
				return fmt.Errorf("deleting KV entry: %w", err)
			}
		}
	}

	return nil
}

// Prune evicts the oldest entries until at most maxEntries remain.
func (c *NATSKVCache) Prune(ctx context.Context, maxEntries int) error {
	keys, err := c.keys(ctx)
	if err != nil || len(keys) <= maxEntries {
		return err
	}

	type keyedEntry struct {
		key     string
		created time.Time
	}

	entries := make([]keyedEntry, 0, len(keys))

	for _, key := range keys {
		kvEntry, err := c.bucket.Get(ctx, key)
		if err != nil {
			continue
		}

		var stored natsKVEntry
		if err := json.Unmarshal(kvEntry.Value(), &stored); err != nil {
			_ = c.bucket.Delete(ctx, key)

			continue
		}

		entries = append(entries, keyedEntry{key: key, created: stored.CreatedAt})
	}

	excess := len(entries) - maxEntries
	for range excess {
		oldest := 0

		for i, entry := range entries {
			if entry.created.Before(entries[oldest].created) {
				oldest = i
			}
		}

		_ = c.bucket.Delete(ctx, entries[oldest].key)
		entries = append(entries[:oldest], entries[oldest+1:]...)
	}

	return nil
}

// Clear removes every entry in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := c.bucket.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("deleting KV entry: %w", err)
		}
	}

	return nil
}

// Has reports whether an unexpired entry exists for the key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the NATS connection.
func (c *NATSKVCache) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}

	return nil
}

func (c *NATSKVCache) keys(ctx context.Context) ([]string, error) {
	keys, err := c.bucket.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("listing KV keys: %w", err)
	}

	return keys, nil
}
