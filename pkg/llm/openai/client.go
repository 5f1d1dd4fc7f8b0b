package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"explainergo/pkg/config"
	"explainergo/pkg/llm"
	"explainergo/pkg/tracker"
)

const providerName = "openai"

// Client implements llm.Provider for any OpenAI-compatible chat API.
type Client struct {
	client   openai.Client
	apiKey   string
	model    string
	profiles map[string]string
	tracker  *tracker.Tracker

	// set once the server rejects json_schema response formats
	jsonObjectOnly atomic.Bool

	mu sync.RWMutex
}

// NewClient creates a new OpenAI client. httpClient may be nil.
func NewClient(cfg config.ProviderConfig, httpClient *http.Client, t *tracker.Tracker) (*Client, error) {
	if cfg.Key == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: api key or base url required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Client{
		client:   openai.NewClient(opts...),
		apiKey:   cfg.Key,
		model:    cfg.Model,
		profiles: cfg.Profiles,
		tracker:  t,
	}, nil
}

// Generate sends a chat completion request and returns the message content.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model, err := c.ResolveModel(req.Profile)
	if err != nil {
		return "", err
	}

	params, err := c.buildParams(model, req)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil && req.Schema != nil && shouldFallbackJSONMode(err) {
		slog.Warn("OpenAI: json_schema rejected, falling back to json_object", "model", model, "error", err)
		c.jsonObjectOnly.Store(true)
		params, _ = c.buildParams(model, req)
		resp, err = c.client.Chat.Completions.New(ctx, params)
	}
	if err != nil {
		c.track(false)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			err = &llm.StatusError{Code: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("openai chat error: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.track(false)
		return "", errors.New("openai returned no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		slog.Warn("OpenAI: response hit the output token limit", "profile", req.Profile, "max_tokens", req.MaxTokens)
	}

	text := choice.Message.Content
	if strings.TrimSpace(text) == "" {
		if c.tracker != nil {
			c.tracker.TrackAPIZero(providerName)
		}
		return "", errors.New("openai returned an empty response")
	}

	c.track(true)
	return text, nil
}

func (c *Client) buildParams(model string, req llm.Request) (openai.ChatCompletionNewParams, error) {
	prompt := req.Prompt
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	params := openai.ChatCompletionNewParams{Model: model}

	switch {
	case req.Schema != nil && !c.jsonObjectOnly.Load():
		doc, err := req.Schema.JSON()
		if err != nil {
			return params, err
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Schema.Name,
					Schema: doc,
				},
			},
		}
	case req.JSON || req.Schema != nil:
		// json_object mode requires the word "json" somewhere in the messages.
		if !strings.Contains(strings.ToLower(req.System+prompt), "json") {
			prompt += "\n\nRespond in JSON."
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	params.Messages = append(messages, openai.UserMessage(prompt))

	if isReasoner(model) {
		if req.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		}
		return params, nil
	}

	params.Temperature = openai.Float(float64(req.Temperature))
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params, nil
}

// HealthCheck verifies the configured model is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	if model == "" {
		return errors.New("openai model not configured")
	}
	if _, err := c.client.Models.Get(ctx, model); err != nil {
		return fmt.Errorf("openai model %s unavailable: %w", model, err)
	}
	return nil
}

// HasProfile reports whether the client can serve the named profile.
func (c *Client) HasProfile(name string) bool {
	_, err := c.ResolveModel(name)
	return err == nil
}

// ResolveModel returns the model configured for intent, falling back to the
// default model.
func (c *Client) ResolveModel(intent string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model, ok := c.profiles[intent]; ok && model != "" {
		return model, nil
	}
	if c.model != "" {
		return c.model, nil
	}
	return "", fmt.Errorf("profile %q not configured", intent)
}

func (c *Client) track(ok bool) {
	if c.tracker == nil {
		return
	}
	if ok {
		c.tracker.TrackAPISuccess(providerName)
	} else {
		c.tracker.TrackAPIFailure(providerName)
	}
}

// shouldFallbackJSONMode detects gateways that do not support json_schema.
func shouldFallbackJSONMode(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != http.StatusBadRequest && apiErr.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "json_schema") || strings.Contains(msg, "response_format") {
		return true
	}
	return strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema")
}

func isReasoner(model string) bool {
	m := strings.ToLower(model)
	if strings.Contains(m, "reasoner") || strings.Contains(m, "-r1") {
		return true
	}
	return len(m) > 1 && m[0] == 'o' && m[1] >= '1' && m[1] <= '9'
}
