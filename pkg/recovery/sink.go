package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DebugSink receives the last raw response of a failed recovery.
// It returns a human-readable location of what it stored.
type DebugSink interface {
	Write(raw string) (string, error)
}

// FileSink overwrites a single file with the failed response.
type FileSink struct {
	Path string
}

// Write stores raw at s.Path, creating parent directories.
func (s FileSink) Write(raw string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug dir: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(raw), 0o644); err != nil {
		return "", fmt.Errorf("failed to write debug response: %w", err)
	}
	return s.Path, nil
}

// DiscardSink drops the response.
type DiscardSink struct{}

func (DiscardSink) Write(string) (string, error) { return "", nil }

// MemorySink keeps every write in memory.
type MemorySink struct {
	mu     sync.Mutex
	writes []string
}

func (s *MemorySink) Write(raw string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, raw)
	return fmt.Sprintf("memory#%d", len(s.writes)), nil
}

// Writes returns a copy of everything written so far.
func (s *MemorySink) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes))
	copy(out, s.writes)
	return out
}
