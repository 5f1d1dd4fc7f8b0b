// Package recovery turns raw LLM text into validated, typed objects. It cleans
// common formatting damage, validates against a JSON schema and retries with a
// falling sampling temperature.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"explainergo/pkg/schema"
)

// DefaultMaxAttempts is used when Options.MaxAttempts is not set.
const DefaultMaxAttempts = 3

// Generator produces one raw response for the given attempt (1-based) at the
// given sampling temperature.
type Generator func(ctx context.Context, attempt int, temperature float32) (string, error)

// Options configures Recover.
type Options[T any] struct {
	// Name identifies the call in logs, e.g. "blueprint".
	Name        string
	Schema      *schema.Schema
	MaxAttempts int
	Sink        DebugSink

	// Validate runs after decoding. A failure counts as a schema failure.
	Validate func(*T) error

	// Temperature overrides the default retry schedule.
	Temperature func(attempt int) float32

	// AttemptTimeout bounds each generator call when positive.
	AttemptTimeout time.Duration

	// Rejected is told about every response that failed to decode, before the
	// next attempt starts.
	Rejected func(attempt int, err error)
}

// TemperatureFor returns the sampling temperature for an attempt:
// 0.3, then 0.2, then 0.1 for every later attempt.
func TemperatureFor(attempt int) float32 {
	switch {
	case attempt <= 1:
		return 0.3
	case attempt == 2:
		return 0.2
	default:
		return 0.1
	}
}

// Recover calls gen until a response cleans, parses and validates, or the
// attempts run out. Attempts are strictly sequential. A generator error ends
// recovery immediately with a *ServiceError; exhausting all attempts writes the
// last raw response to the sink once and returns an *ExhaustedError.
func Recover[T any](ctx context.Context, gen Generator, opts Options[T]) (*T, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	tempFor := opts.Temperature
	if tempFor == nil {
		tempFor = TemperatureFor
	}

	var lastRaw string
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s recovery aborted before attempt %d: %w", opts.Name, attempt, err)
		}

		temp := tempFor(attempt)
		raw, err := call(ctx, gen, attempt, temp, opts.AttemptTimeout)
		if err != nil {
			slog.Error("Structured response: generator failed", "name", opts.Name, "attempt", attempt, "error", err)
			return nil, &ServiceError{Attempt: attempt, Err: err}
		}
		lastRaw = raw

		v, err := Decode(raw, opts.Schema, opts.Validate)
		if err == nil {
			slog.Debug("Structured response accepted", "name", opts.Name, "attempt", attempt, "temperature", temp, "bytes", len(raw))
			return v, nil
		}

		lastErr = err
		if opts.Rejected != nil {
			opts.Rejected(attempt, err)
		}
		slog.Warn("Structured response rejected",
			"name", opts.Name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"temperature", temp,
			"bytes", len(raw),
			"error", err)
	}

	exhausted := &ExhaustedError{Attempts: maxAttempts, LastErr: lastErr}
	if opts.Sink != nil {
		loc, err := opts.Sink.Write(lastRaw)
		if err != nil {
			slog.Error("Failed to save last response", "name", opts.Name, "error", err)
		} else if loc != "" {
			exhausted.DebugPath = loc
			slog.Info("Saved failed response for debugging", "name", opts.Name, "path", loc)
		}
	}
	return nil, exhausted
}

func call(ctx context.Context, gen Generator, attempt int, temp float32, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return gen(ctx, attempt, temp)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return gen(attemptCtx, attempt, temp)
}

// Decode cleans raw, parses it, checks it against s (when non-nil) and decodes
// it into T. The validate hook runs last.
func Decode[T any](raw string, s *schema.Schema, validate func(*T) error) (*T, error) {
	cleaned, err := Clean(raw)
	if err != nil {
		return nil, err
	}

	if s != nil {
		var doc any
		if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
			return nil, &ParseError{Err: err}
		}
		if err := s.Validate(doc); err != nil {
			return nil, &SchemaError{Err: err}
		}
	}

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Err: err}
		}
		return nil, &SchemaError{Err: err}
	}

	if validate != nil {
		if err := validate(&out); err != nil {
			return nil, &SchemaError{Err: err}
		}
	}
	return &out, nil
}
