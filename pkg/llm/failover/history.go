package failover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"explainergo/pkg/llm"
)

const historyWidth = 80

// history appends one entry per LLM call to a plain-text file. Failed calls
// record only the profile and the error.
type history struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func newHistory(path string) *history {
	return &history{path: path, now: time.Now}
}

func (h *history) record(provider string, req llm.Request, response string, err error) {
	if h == nil || h.path == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", h.now().Format(time.DateTime), strings.ToUpper(provider), req.Profile)
	if err != nil {
		fmt.Fprintf(&b, " FAILED: %v\n", err)
	} else {
		fmt.Fprintf(&b, " temperature=%.2f\n", req.Temperature)
		b.WriteString("--- prompt\n")
		b.WriteString(llm.TruncateParagraphs(req.Prompt, historyWidth))
		b.WriteString("\n--- response\n")
		b.WriteString(llm.WordWrap(response, historyWidth))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("=", historyWidth))
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return
	}
	file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(b.String())
}
