package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"explainergo/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "explainer.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	llmLog := filepath.Join(tempDir, "llm.log")

	if err := os.WriteFile(serverLog, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(llmLog, []byte("old prompts\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		LLM:      config.LogSettings{Path: llmLog},
	}

	prev := slog.Default()
	defer slog.SetDefault(prev)

	cleanup, err := Init(cfg, &config.HistoryConfig{LLM: true})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	old, err := os.ReadFile(serverLog + ".old")
	if err != nil || string(old) != "previous run\n" {
		t.Errorf("server log not rotated: %q, %v", old, err)
	}
	if _, err := os.Stat(llmLog + ".old"); err != nil {
		t.Error("llm history not rotated")
	}

	slog.Warn("scene render failed", "scene", 3)
	if got := Warnings.Last(); !strings.Contains(got, "scene render failed") {
		t.Errorf("capture = %q", got)
	}

	RequestLogger.Info("request", "host", "example.com")
	cleanup()
	data, _ := os.ReadFile(requestLog)
	if !strings.Contains(string(data), "example.com") {
		t.Error("request logger did not write to its file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"warning": slog.LevelWarn,
		"DEBUG-4": slog.LevelDebug - 4,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanout(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := fanout{failingHandler{text}, text}

	log := slog.New(h).With("run", "r1").WithGroup("scene")
	log.Info("skipped by both")
	if buf.Len() != 0 {
		t.Errorf("info record written: %q", buf.String())
	}

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Handle error = %v", err)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Error("healthy handler skipped after a failing one")
	}

	buf.Reset()
	log.Warn("late", "n", 2)
	if got := buf.String(); !strings.Contains(got, "run=r1") || !strings.Contains(got, "scene.n=2") {
		t.Errorf("attrs or group lost: %q", got)
	}
}

func TestWarningRing(t *testing.T) {
	r := NewWarningRing(2)
	for _, l := range []string{"one\n", "  \n", "two\n", "three\n"} {
		if _, err := r.Write([]byte(l)); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Recent()
	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Errorf("Recent() = %q", got)
	}
	if r.Last() != "three" {
		t.Errorf("Last() = %q", r.Last())
	}
	r.Reset()
	if r.Last() != "" || len(r.Recent()) != 0 {
		t.Error("Reset did not clear the ring")
	}
}

func TestTraceFromEnv(t *testing.T) {
	tests := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"yes":   true,
	}
	for in, want := range tests {
		t.Setenv(TraceEnv, in)
		if got := traceFromEnv(); got != want {
			t.Errorf("traceFromEnv(%q) = %v, want %v", in, got, want)
		}
	}
}
