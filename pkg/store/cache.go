package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// sqliteTime matches the CURRENT_TIMESTAMP layout the cache table defaults to.
const sqliteTime = "2006-01-02 15:04:05"

// GetCache returns the value stored under key. Read errors count as a miss.
func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	if err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val); err != nil {
		return nil, false
	}
	if !isGzip(val) {
		return val, true
	}
	plain, err := gunzip(val)
	if err != nil {
		slog.Warn("Dropping unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	return plain, true
}

// SetCache stores val gzip-compressed under key, replacing any older value.
func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	packed, err := gzipBytes(val)
	if err != nil {
		packed = val
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)",
		key, packed, time.Now().UTC().Format(sqliteTime))
	return err
}

// DeleteCache removes every entry whose key starts with prefix and reports
// how many went. An empty prefix clears the table.
func (s *SQLiteStore) DeleteCache(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneCache removes entries written more than olderThan ago.
func (s *SQLiteStore) PruneCache(ctx context.Context, olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC().Format(sqliteTime)
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE created_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

func isGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzipWriters.Get().(*gzip.Writer)
	defer gzipWriters.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
