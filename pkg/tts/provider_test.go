package tts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		retryable   bool
		rateLimited bool
	}{
		{"429", NewFatalError(429, "Too Many Requests"), true, true},
		{"Wrapped 429", fmt.Errorf("scene 2: %w", NewFatalError(429, "slow down")), true, true},
		{"500", NewFatalError(500, "Internal Server Error"), true, false},
		{"503", NewFatalError(503, "Unavailable"), true, false},
		{"401", NewFatalError(401, "Unauthorized"), false, false},
		{"Plain error", errors.New("dial failed"), false, false},
		{"Nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, Retryable(tt.err))
			assert.Equal(t, tt.rateLimited, IsRateLimited(tt.err))
		})
	}
}

type staticVoices struct {
	voices []Voice
	err    error
}

func (s staticVoices) Synthesize(context.Context, string, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s staticVoices) Voices(context.Context) ([]Voice, error) { return s.voices, s.err }

func TestCheckVoice(t *testing.T) {
	p := staticVoices{voices: []Voice{{ID: "en-US-GuyNeural"}, {ID: "alloy"}}}
	ctx := context.Background()

	assert.NoError(t, CheckVoice(ctx, p, "en-us-guyneural"))
	assert.NoError(t, CheckVoice(ctx, p, "alloy"))
	assert.ErrorContains(t, CheckVoice(ctx, p, "shimmer"), "not offered")
	assert.ErrorContains(t, CheckVoice(ctx, p, ""), "no voice")
	assert.Error(t, CheckVoice(ctx, staticVoices{err: errors.New("offline")}, "alloy"))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"Sat, 01 Mar 2025 12:00:30 GMT", 30 * time.Second},
		{"Sat, 01 Mar 2025 11:00:00 GMT", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRetryAfter(tt.in, now), tt.in)
	}

	fe := &FatalError{StatusCode: 429, RetryAfter: 2 * time.Second}
	assert.Equal(t, 2*time.Second, fe.RetryAfterHint())
}
