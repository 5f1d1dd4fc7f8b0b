package logging

import (
	"strings"
	"sync"
)

// WarningRing keeps the most recent WARN and ERROR lines of the main logger
// so a failed run can show what led up to it.
type WarningRing struct {
	mu    sync.Mutex
	lines []string
	size  int
}

// NewWarningRing returns a ring holding up to size lines.
func NewWarningRing(size int) *WarningRing {
	if size <= 0 {
		size = 1
	}
	return &WarningRing{size: size}
}

// Warnings is fed by the main logger once Init has run.
var Warnings = NewWarningRing(5)

// Write implements io.Writer. Each call is one formatted record.
func (w *WarningRing) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.lines) == w.size {
		copy(w.lines, w.lines[1:])
		w.lines = w.lines[:w.size-1]
	}
	w.lines = append(w.lines, line)
	return len(p), nil
}

// Recent returns the buffered lines, oldest first.
func (w *WarningRing) Recent() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

// Last returns the newest line, or "".
func (w *WarningRing) Last() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Reset drops all lines.
func (w *WarningRing) Reset() {
	w.mu.Lock()
	w.lines = nil
	w.mu.Unlock()
}
