package store

import (
	"context"
	"time"

	"explainergo/pkg/model"
)

// RunStore keeps one row per pipeline run.
type RunStore interface {
	CreateRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	UpdateRun(ctx context.Context, r *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)
	MarkInterrupted(ctx context.Context) (int64, error)
}

// CacheStore is a byte cache with key prefixes and age-based expiry.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
	DeleteCache(ctx context.Context, prefix string) (int64, error)
	PruneCache(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StateStore holds small named values that outlive a process, such as the
// last run ID.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
