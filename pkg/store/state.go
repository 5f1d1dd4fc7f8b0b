package store

import (
	"context"
	"time"
)

// KeyLastRun is the state key holding the most recent run ID.
const KeyLastRun = "last_run"

// GetState returns the value under key, if any.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	if err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val); err != nil {
		return "", false
	}
	return val, true
}

// SetState upserts key.
func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, val, time.Now().UTC())
	return err
}

// DeleteState removes key. Missing keys are not an error.
func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
