package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"explainergo/pkg/db"
	"explainergo/pkg/model"
)

// Store is everything the CLI needs from persistence. Packages that use only
// part of it take the narrower interface.
type Store interface {
	RunStore
	CacheStore
	StateStore
	Close() error
}

// SQLiteStore implements Store on top of db.DB.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore wraps an opened and migrated database.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts r, assigning an ID and timestamps when missing.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *model.Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = model.RunRunning
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topic, style, dir, stage, status, error, output, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Topic, r.Style, r.Dir, string(r.Stage), string(r.Status), r.Error, r.Output, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

const runColumns = `id, topic, style, dir, stage, status, error, output, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var r model.Run
	var style, dir, stage, status, errText, output sql.NullString
	if err := row.Scan(&r.ID, &r.Topic, &style, &dir, &stage, &status, &errText, &output, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Style = style.String
	r.Dir = dir.String
	r.Stage = model.Stage(stage.String)
	r.Status = model.RunStatus(status.String)
	r.Error = errText.String
	r.Output = output.String
	return &r, nil
}

// GetRun returns the run with the given ID, or nil when it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// UpdateRun persists stage, status, error and output of r.
func (s *SQLiteStore) UpdateRun(ctx context.Context, r *model.Run) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET style = ?, dir = ?, stage = ?, status = ?, error = ?, output = ?, updated_at = ? WHERE id = ?`,
		r.Style, r.Dir, string(r.Stage), string(r.Status), r.Error, r.Output, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: not found", r.ID)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// MarkInterrupted flags runs left in the running state by a previous process.
func (s *SQLiteStore) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE status = ?`,
		string(model.RunInterrupted), time.Now().UTC(), string(model.RunRunning))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
