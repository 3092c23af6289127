// Package store implements the durable key/value storage port on SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned when a value is larger than the configured ceiling.
var ErrQuotaExceeded = errors.New("value exceeds storage quota")

// KV is a string key/value store backed by the kv table.
type KV struct {
	db       *sql.DB
	maxBytes int
}

// NewKV returns a KV store. maxBytes <= 0 disables the size ceiling.
func NewKV(db *sql.DB, maxBytes int) *KV {
	return &KV{db: db, maxBytes: maxBytes}
}

// Get returns the value for key and whether it was present.
func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	if s.maxBytes > 0 && len(value) > s.maxBytes {
		return fmt.Errorf("set %q (%d bytes, limit %d): %w", key, len(value), s.maxBytes, ErrQuotaExceeded)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

func (s *KV) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}
