// Package llm defines the text-generation contract shared by all model
// backends, plus helpers for request logging.
package llm

import (
	"context"

	"explainergo/pkg/schema"
)

// Request is one completion call.
type Request struct {
	// Profile selects a per-call model override, e.g. "script" or "blueprint".
	Profile     string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int

	// JSON asks the backend for a JSON object response. Schema, when set,
	// additionally constrains the shape where the backend supports it.
	JSON   bool
	Schema *schema.Schema
}

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// Generate sends the request and returns the raw response text.
	Generate(ctx context.Context, req Request) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error

	// HasProfile checks if the provider has a specific profile configured.
	HasProfile(name string) bool
}

// Committer is implemented by providers that hold a response until the caller
// has decoded it. Commit keeps the response for req; Reject forgets it.
type Committer interface {
	Commit(ctx context.Context, req Request)
	Reject(ctx context.Context, req Request)
}
