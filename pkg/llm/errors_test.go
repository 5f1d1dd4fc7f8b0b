package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorClass
	}{
		{nil, Transient},
		{errors.New("401 unauthorized"), Fatal},
		{errors.New("403 forbidden"), Fatal},
		{errors.New("invalid_api_key"), Fatal},
		{errors.New("API key not valid. Please pass a valid API key."), Fatal},
		{errors.New("400 bad request"), Transient},
		{errors.New("429 too many requests"), Transient},
		{errors.New("random error"), Transient},
		{fmt.Errorf("chat: %w", context.Canceled), Canceled},
		{errors.New("Post: context deadline exceeded"), Canceled},
		{&StatusError{Code: 403, Err: errors.New("nope")}, Fatal},
		{&StatusError{Code: 503, Err: errors.New("forbidden word in body")}, Transient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
	}
}

func TestStatusError(t *testing.T) {
	inner := errors.New("rate limited")
	err := fmt.Errorf("openai chat error: %w", &StatusError{Code: 429, Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "status 429")
	assert.Equal(t, "canceled", Canceled.String())
}
