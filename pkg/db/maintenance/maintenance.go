// Package maintenance runs startup housekeeping on the database.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"explainergo/pkg/store"
)

// DefaultCacheTTL bounds how long cached LLM responses are kept.
const DefaultCacheTTL = 30 * 24 * time.Hour

// Store is the part of the store housekeeping touches.
type Store interface {
	MarkInterrupted(ctx context.Context) (int64, error)
	PruneCache(ctx context.Context, olderThan time.Duration) (int64, error)
}

var _ Store = (*store.SQLiteStore)(nil)

// Report counts what a maintenance pass changed.
type Report struct {
	Interrupted int64
	Pruned      int64
}

// Run flags runs orphaned by a previous process and expires old cache
// entries. Failures are logged and skipped.
func Run(ctx context.Context, s Store, cacheTTL time.Duration) Report {
	var rep Report
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	n, err := s.MarkInterrupted(ctx)
	switch {
	case err != nil:
		slog.Error("Marking interrupted runs failed", "error", err)
	case n > 0:
		rep.Interrupted = n
		slog.Info("Marked runs from a previous process as interrupted", "count", n)
	}

	if n, err := s.PruneCache(ctx, cacheTTL); err != nil {
		slog.Error("Cache pruning failed", "error", err)
	} else {
		rep.Pruned = n
		slog.Debug("Cache pruned", "removed", n, "ttl", cacheTTL)
	}
	return rep
}
