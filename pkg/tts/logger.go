package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PromptLog appends every synthesis request to a history file. A nil
// *PromptLog or an empty Path disables logging.
type PromptLog struct {
	Path string
	mu   sync.Mutex
}

// NewPromptLog returns a log writing to path.
func NewPromptLog(path string) *PromptLog {
	return &PromptLog{Path: path}
}

// Log records one synthesis call. status is the HTTP status, or 0 when the
// transport has none.
func (l *PromptLog) Log(provider, text string, status int, err error) {
	if l == nil || l.Path == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-10s ", time.Now().Format(time.DateTime), provider)
	switch {
	case err != nil:
		fmt.Fprintf(&b, "FAIL %v\n", err)
	case status != 0:
		fmt.Fprintf(&b, "OK %d (%d chars)\n", status, len(text))
	default:
		fmt.Fprintf(&b, "OK (%d chars)\n", len(text))
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		b.WriteString("    " + line + "\n")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(b.String())
}
