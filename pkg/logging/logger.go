package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"explainergo/pkg/config"
)

// RequestLogger is the logger instance for outbound HTTP requests.
// It discards everything until Init runs.
var RequestLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init sets up the main logger (file, console and the warning ring) and the
// request logger. Last run's files are kept as .old; history files only
// rotate when their history is enabled. The returned func closes the files.
func Init(cfg *config.LogConfig, hCfg *config.HistoryConfig) (func(), error) {
	rotate(cfg.Server.Path, cfg.Requests.Path)
	if hCfg != nil && hCfg.LLM {
		rotate(cfg.LLM.Path)
	}
	if hCfg != nil && hCfg.TTS {
		rotate(cfg.TTS.Path)
	}

	mainFile, err := openLog(cfg.Server.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to setup main logger: %w", err)
	}
	reqFile, err := openLog(cfg.Requests.Path)
	if err != nil {
		mainFile.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	level := ParseLevel(cfg.Server.Level)
	root := fanout{
		slog.NewTextHandler(mainFile, &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}),
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}),
		slog.NewTextHandler(Warnings, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}

	Warnings.Reset()
	EnableTrace = traceFromEnv()
	slog.SetDefault(slog.New(root))
	RequestLogger = slog.New(slog.NewTextHandler(reqFile, &slog.HandlerOptions{Level: ParseLevel(cfg.Requests.Level)}))

	return func() {
		mainFile.Close()
		reqFile.Close()
	}, nil
}

// ParseLevel maps a config level name such as "debug" or "WARN" to a slog
// level. "warning" is accepted too; anything unknown is INFO.
func ParseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// openLog opens path for appending. Truncation is rotate's job.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// rotate moves each existing file to <path>.old, replacing the previous one.
func rotate(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = os.Remove(p + ".old")
		_ = os.Rename(p, p+".old")
	}
}
