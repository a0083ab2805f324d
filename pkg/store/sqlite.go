package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var _ DurableTier = (*SQLiteDurable)(nil)

// SQLiteDurable is the SQLite-backed durable tier. Entries never expire;
// they are replaced by upsert and removed only by Delete/Clear.
type SQLiteDurable struct {
	sqlDB *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS series_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenSQLite opens (creating if needed) a SQLite durable tier at path.
func OpenSQLite(path string) (*SQLiteDurable, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteDurable{sqlDB: sqlDB}, nil
}

// Get returns the payload for a key, or ErrCacheMiss.
func (s *SQLiteDurable) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload FROM series_cache WHERE cache_key = ?`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("durable", "get").Inc()
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	CacheOpSeconds.WithLabelValues("durable", "get").Observe(time.Since(start).Seconds())
	return payload, nil
}

// Set upserts the payload for a key.
func (s *SQLiteDurable) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO series_cache (cache_key, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		CacheErrors.WithLabelValues("durable", "set").Inc()
		return fmt.Errorf("sqlite set: %w", err)
	}
	CacheOpSeconds.WithLabelValues("durable", "set").Observe(time.Since(start).Seconds())
	return nil
}

// Delete removes one key.
func (s *SQLiteDurable) Delete(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM series_cache WHERE cache_key = ?`, key,
	); err != nil {
		CacheErrors.WithLabelValues("durable", "delete").Inc()
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Clear removes all entries.
func (s *SQLiteDurable) Clear(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM series_cache`); err != nil {
		CacheErrors.WithLabelValues("durable", "clear").Inc()
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteDurable) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
