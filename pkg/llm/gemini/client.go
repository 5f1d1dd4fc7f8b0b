// Package gemini implements llm.Provider on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"explainergo/pkg/config"
	"explainergo/pkg/llm"
	"explainergo/pkg/tracker"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

// Client implements llm.Provider for Google Gemini. A Client built without a
// key is valid but serves no profiles.
type Client struct {
	genai     *genai.Client
	modelName string
	profiles  map[string]string // profile -> model
	tracker   *tracker.Tracker
}

// NewClient creates a Gemini client. httpClient may be nil.
func NewClient(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client, t *tracker.Tracker) (*Client, error) {
	c := &Client{
		modelName: cfg.Model,
		profiles:  cfg.Profiles,
		tracker:   t,
	}
	if c.modelName == "" {
		c.modelName = defaultModel
	}
	if cfg.Key == "" {
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.Key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// Generate sends the request and returns the response text.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if c.genai == nil {
		return "", errors.New("gemini client not configured")
	}

	model, cfg, err := c.resolveModel(req)
	if err != nil {
		return "", err
	}

	resp, err := c.genai.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		c.track(false)
		return "", fmt.Errorf("gemini generate error: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		c.track(false)
		return "", err
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		slog.Warn("Gemini: response hit the output token limit", "profile", req.Profile, "max_tokens", req.MaxTokens)
	}
	if strings.TrimSpace(text) == "" {
		if c.tracker != nil {
			c.tracker.TrackAPIZero(providerName)
		}
		return "", errors.New("gemini returned an empty response")
	}

	c.track(true)
	return text, nil
}

// HealthCheck verifies the key is set and the configured model is reachable.
// When it is not, the error lists the Gemini models the key can see.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.genai == nil {
		return errors.New("gemini api key not configured")
	}
	_, err := c.genai.Models.Get(ctx, modelPath(c.modelName), nil)
	if err == nil {
		return nil
	}
	if available := c.listModels(ctx); len(available) > 0 {
		return fmt.Errorf("gemini model %s unavailable (available: %s): %w", c.modelName, strings.Join(available, ", "), err)
	}
	return fmt.Errorf("gemini model %s unavailable: %w", c.modelName, err)
}

// HasProfile reports whether the client can serve the named profile.
func (c *Client) HasProfile(name string) bool {
	return c.genai != nil && (c.profiles[name] != "" || c.modelName != "")
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

// listModels returns the Gemini model names visible to the key. Listing
// errors end the walk early.
func (c *Client) listModels(ctx context.Context) []string {
	page, err := c.genai.Models.List(ctx, nil)
	if err != nil {
		slog.Debug("Gemini model listing failed", "error", err)
		return nil
	}
	var names []string
	for {
		m, err := page.Next(ctx)
		if errors.Is(err, iterator.Done) || err != nil {
			break
		}
		if strings.Contains(strings.ToLower(m.Name), "gemini") {
			names = append(names, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	return names
}
