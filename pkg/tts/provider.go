// Package tts defines the text-to-speech provider contract used for narration.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MinAudioSize is the smallest file a successful synthesis produces. Anything
// smaller is treated as a failed call.
const MinAudioSize = 1024

// Provider synthesizes narration audio.
type Provider interface {
	// Synthesize writes audio for text to outputPath plus an extension and
	// returns that extension ("mp3", "wav").
	Synthesize(ctx context.Context, text, voice, outputPath string) (string, error)

	// Voices lists the voices the provider accepts.
	Voices(ctx context.Context) ([]Voice, error)
}

// Voice is one selectable TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	IsNeural bool
}

// FatalError is an HTTP-level failure of a provider call.
type FatalError struct {
	StatusCode int
	Message    string
	// RetryAfter is the server's Retry-After hint, or 0.
	RetryAfter time.Duration
}

func (e *FatalError) Error() string {
	return e.Message
}

// RetryAfterHint lets backoff honor the server's Retry-After.
func (e *FatalError) RetryAfterHint() time.Duration {
	return e.RetryAfter
}

// ParseRetryAfter reads a Retry-After header value in seconds or as an HTTP
// date. Unparseable or past values are 0.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// NewFatalError creates a FatalError.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsRateLimited reports whether err wraps a 429 FatalError.
func IsRateLimited(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether another attempt may succeed: rate limits and
// server-side failures. Auth and request errors are not retried.
func Retryable(err error) bool {
	var fe *FatalError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= 500
}

// CheckVoice verifies that voice is offered by p. Matching ignores case.
func CheckVoice(ctx context.Context, p Provider, voice string) error {
	if voice == "" {
		return errors.New("no voice configured")
	}
	voices, err := p.Voices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		if strings.EqualFold(v.ID, voice) {
			return nil
		}
	}
	return fmt.Errorf("voice %q not offered (%d voices available)", voice, len(voices))
}
