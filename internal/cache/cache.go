// Package cache implements the TTL-bounded key/value layer backing playlist
// metadata, song lists and filter results.
//
// Entries are JSON documents in the cache_entries table. The cache is the sole
// authority on freshness: expired rows are treated as absent and lazily
// deleted on read. Deserialization failures surface as
// [shared.ErrCacheCorruption] and are never masked as misses.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adhamahmad/music-genie/internal/shared"
)

// scanBatchSize bounds each keyset-pagination query issued by ScanPrefix.
const scanBatchSize = 100

// Cache is a TTL'd JSON key/value store over a SQL database.
type Cache struct {
	db *sql.DB
}

// New creates a Cache backed by the given database.
func New(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Set serializes value to JSON and stores it under key with the given TTL.
// An existing entry under the same key is overwritten (last write wins).
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize cache value for %s: %w", key, err)
	}

	query := `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`

	if _, err := c.db.Exec(query, key, string(data), time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Get reads the entry under key into dest.
//
// Returns (false, nil) when the key is missing or expired. A stored value
// that no longer deserializes returns [shared.ErrCacheCorruption].
func (c *Cache) Get(key string, dest any) (bool, error) {
	var (
		value     string
		expiresAt time.Time
	)

	err := c.db.QueryRow("SELECT value, expires_at FROM cache_entries WHERE key = ?", key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cache entry: %w", err)
	}

	if !expiresAt.After(time.Now()) {
		// Expired rows read as absent; reclaim opportunistically.
		_, _ = c.db.Exec("DELETE FROM cache_entries WHERE key = ?", key)
		return false, nil
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("%w: key %s: %v", shared.ErrCacheCorruption, key, err)
	}

	return true, nil
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	if _, err := c.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// ScanPrefix enumerates the raw JSON values of all live entries whose key
// starts with prefix, in batches, never holding a full-keyspace query open.
//
// Returns nil when zero keys match, so callers can tell "nothing cached"
// apart from "cached empty set".
func (c *Cache) ScanPrefix(prefix string) ([]json.RawMessage, error) {
	query := `
		SELECT key, value FROM cache_entries
		WHERE key > ? AND key LIKE ? AND expires_at > ?
		ORDER BY key
		LIMIT ?
	`

	var results []json.RawMessage
	cursor := prefix

	for {
		rows, err := c.db.Query(query, cursor, prefix+"%", time.Now(), scanBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entries: %w", err)
		}

		count := 0
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan cache row: %w", err)
			}
			results = append(results, json.RawMessage(value))
			cursor = key
			count++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("cache row iteration error: %w", err)
		}
		rows.Close()

		if count < scanBatchSize {
			break
		}
	}

	return results, nil
}

// PurgeExpired deletes all expired entries and returns how many were removed.
func (c *Cache) PurgeExpired() (int64, error) {
	result, err := c.db.Exec("DELETE FROM cache_entries WHERE expires_at <= ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return result.RowsAffected()
}
