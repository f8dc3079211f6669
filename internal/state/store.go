// Package state persists client state in a local sqlite database:
// preferences, the durable response-cache tier, command history, and
// the VM registration ledger.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Store is a sqlite-backed state store. It is safe for concurrent use;
// the underlying pool is capped at one connection because sqlite
// serializes writers anyway.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultStatePath returns the default state database location,
// ~/.rsspot/state.db.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, ".rsspot", "state.db"), nil
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return store, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS http_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_http_cache_created ON http_cache (created_at)`,
		`CREATE TABLE IF NOT EXISTS command_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			command    TEXT NOT NULL,
			org        TEXT NOT NULL DEFAULT '',
			exit_code  INTEGER NOT NULL DEFAULT 0,
			ran_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS registration_ledger (
			registration_key TEXT PRIMARY KEY,
			vm_uid           TEXT NOT NULL,
			vm_name          TEXT NOT NULL DEFAULT '',
			org_id           TEXT NOT NULL DEFAULT '',
			vmcloudspace     TEXT NOT NULL DEFAULT '',
			vmpool           TEXT NOT NULL DEFAULT '',
			omni_cluster     TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL,
			token_id         TEXT NOT NULL DEFAULT '',
			token_expires_at INTEGER,
			last_error       TEXT NOT NULL DEFAULT '',
			payload          TEXT,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating state schema: %w", err)
		}
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GetPreference returns the stored preference value, or "" when the
// key is unset.
func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	var value string

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("reading preference %s: %w", key, err)
	}

	return value, nil
}

// SetPreference stores a preference value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}

	return nil
}

// GetPreferenceJSON unmarshals a stored preference into out. It
// returns false when the key is unset.
func (s *Store) GetPreferenceJSON(ctx context.Context, key string, out any) (bool, error) {
	value, err := s.GetPreference(ctx, key)
	if err != nil || value == "" {
		return false, err
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("decoding preference %s: %w", key, err)
	}

	return true, nil
}

// SetPreferenceJSON marshals value and stores it under key.
func (s *Store) SetPreferenceJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding preference %s: %w", key, err)
	}

	return s.SetPreference(ctx, key, string(data))
}

// CacheGet returns the cache entry for key, lazily deleting expired
// rows.
func (s *Store) CacheGet(ctx context.Context, key string) (*spot.CacheEntry, error) {
	var (
		payload   []byte
		expiresAt int64
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at, created_at FROM http_cache WHERE key = ?`, key).
		Scan(&payload, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, spot.ErrCacheKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	entry := &spot.CacheEntry{
		Data:      payload,
		ExpiresAt: time.Unix(expiresAt, 0),
		CreatedAt: time.Unix(createdAt, 0),
	}
	if entry.Expired(time.Now()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM http_cache WHERE key = ?`, key)

		return nil, spot.ErrCacheEntryExpired
	}

	return entry, nil
}

// CacheSet stores a cache entry.
func (s *Store) CacheSet(ctx context.Context, key string, entry *spot.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO http_cache (key, payload, expires_at, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key, []byte(entry.Data), entry.ExpiresAt.Unix(), entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}

// CacheDelete removes a single cache entry.
func (s *Store) CacheDelete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM http_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}

	return nil
}

// CacheDeletePrefix removes every cache entry whose key starts with
// prefix.
func (s *Store) CacheDeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeLike(prefix) + "%"
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM http_cache WHERE key LIKE ? ESCAPE '\'`, pattern); err != nil {
		return fmt.Errorf("deleting cache entries: %w", err)
	}

	return nil
}

// CacheGC removes expired cache rows.
func (s *Store) CacheGC(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM http_cache WHERE expires_at <= ?`, time.Now().Unix()); err != nil {
		return fmt.Errorf("pruning expired cache entries: %w", err)
	}

	return nil
}

// CachePruneToLimit evicts the oldest-created rows until at most
// maxEntries remain.
func (s *Store) CachePruneToLimit(ctx context.Context, maxEntries int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM http_cache WHERE key IN (
			SELECT key FROM http_cache ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("pruning cache to limit: %w", err)
	}

	return nil
}

// CacheClear removes every cache row.
func (s *Store) CacheClear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM http_cache`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

// CacheLen returns the number of cached rows, expired included.
func (s *Store) CacheLen(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM http_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}

	return count, nil
}

// Cache returns a spot.Cache view over the http_cache table.
func (s *Store) Cache() spot.Cache {
	return &storeCache{store: s}
}

// storeCache adapts the http_cache table to the spot.Cache interface.
type storeCache struct {
	store *Store
}

func (c *storeCache) Get(ctx context.Context, key string) (*spot.CacheEntry, error) {
	return c.store.CacheGet(ctx, key)
}

func (c *storeCache) Set(ctx context.Context, key string, entry *spot.CacheEntry) error {
	return c.store.CacheSet(ctx, key, entry)
}

func (c *storeCache) Delete(ctx context.Context, key string) error {
	return c.store.CacheDelete(ctx, key)
}

func (c *storeCache) DeletePrefix(ctx context.Context, prefix string) error {
	return c.store.CacheDeletePrefix(ctx, prefix)
}

func (c *storeCache) Prune(ctx context.Context, maxEntries int) error {
	if err := c.store.CacheGC(ctx); err != nil {
		return err
	}

	return c.store.CachePruneToLimit(ctx, maxEntries)
}

func (c *storeCache) Clear(ctx context.Context) error {
	return c.store.CacheClear(ctx)
}

func (c *storeCache) Has(ctx context.Context, key string) bool {
	_, err := c.store.CacheGet(ctx, key)

	return err == nil
}

// escapeLike escapes LIKE metacharacters so prefixes containing % or _
// match literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}

		out = append(out, s[i])
	}

	return string(out)
}
