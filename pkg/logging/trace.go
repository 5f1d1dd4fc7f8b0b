package logging

import (
	"log/slog"
	"os"
	"strconv"
)

// TraceEnv names the environment variable that turns tracing on.
const TraceEnv = "EXPLAINER_TRACE"

// EnableTrace turns on per-action schedule and render logs. Init sets it from
// TraceEnv.
var EnableTrace = false

func traceFromEnv() bool {
	v := os.Getenv(TraceEnv)
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// Trace logs at DEBUG on logger when tracing is on.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}

// TraceDefault is Trace on the default logger.
func TraceDefault(msg string, args ...any) {
	Trace(slog.Default(), msg, args...)
}
