// ABOUTME: Store-owned keyed TTL cache shared by all service instances
// ABOUTME: Replaces module-level maps so freshness is consistent across processes

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CachePut stores a value under key with the given TTL, replacing any
// existing entry.
func (s *SQLiteStore) CachePut(ctx context.Context, key, value string, ttl time.Duration) error {
	expires := time.Now().UTC().Add(ttl)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv_cache (key, value, expires_at) VALUES (?, ?, ?)`,
		key, value, expires.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// CacheGet returns the cached value for key, or ErrNotFound if the key is
// absent or expired. Expired rows are deleted lazily.
func (s *SQLiteStore) CacheGet(ctx context.Context, key string) (string, error) {
	var value, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_cache WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading cache entry: %w", err)
	}

	expires, perr := time.Parse(time.RFC3339Nano, expiresAt)
	if perr != nil || !time.Now().UTC().Before(expires) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv_cache WHERE key = ?`, key)
		return "", ErrNotFound
	}
	return value, nil
}
