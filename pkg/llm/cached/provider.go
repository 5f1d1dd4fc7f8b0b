// Package cached memoizes accepted LLM responses in a Cacher. A fresh response
// is held back until the caller commits it, so a response that failed to
// decode is never replayed.
package cached

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"explainergo/pkg/cache"
	"explainergo/pkg/llm"
	"explainergo/pkg/tracker"
)

// KeyPrefix starts every key this package writes.
const KeyPrefix = "llm:"

const trackerName = "llm-cache"

// Provider serves repeated requests from the cache and forwards misses.
type Provider struct {
	next    llm.Provider
	cache   cache.Cacher
	tracker *tracker.Tracker

	mu      sync.Mutex
	pending map[string]string
}

var _ llm.Committer = (*Provider)(nil)

// New wraps next with a response cache.
func New(next llm.Provider, c cache.Cacher, t *tracker.Tracker) *Provider {
	return &Provider{next: next, cache: c, tracker: t, pending: make(map[string]string)}
}

// Key returns the cache key for req. Requests that differ only in provider
// choice share a key.
func Key(req llm.Request) string {
	schemaName := ""
	if req.Schema != nil {
		schemaName = req.Schema.Name
	}
	return cache.Key(KeyPrefix,
		req.Profile,
		req.System,
		req.Prompt,
		fmt.Sprintf("%.2f", req.Temperature),
		strconv.Itoa(req.MaxTokens),
		strconv.FormatBool(req.JSON),
		schemaName,
	)
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	key := Key(req)
	if data, ok := p.cache.GetCache(ctx, key); ok {
		p.trackHit(true)
		slog.Debug("LLM cache hit", "profile", req.Profile, "temperature", req.Temperature)
		return string(data), nil
	}
	p.trackHit(false)

	res, err := p.next.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.pending[key] = res
	p.mu.Unlock()
	return res, nil
}

// Commit stores the held response for req. It is a no-op when req was served
// from the cache.
func (p *Provider) Commit(ctx context.Context, req llm.Request) {
	key := Key(req)
	p.mu.Lock()
	res, ok := p.pending[key]
	delete(p.pending, key)
	p.mu.Unlock()
	if !ok {
		return
	}
	if err := p.cache.SetCache(ctx, key, []byte(res)); err != nil {
		slog.Warn("Failed to cache LLM response", "profile", req.Profile, "error", err)
	}
}

// Reject drops the held response for req, or evicts the cached one, so the
// next identical request reaches the backend.
func (p *Provider) Reject(ctx context.Context, req llm.Request) {
	key := Key(req)
	p.mu.Lock()
	_, held := p.pending[key]
	delete(p.pending, key)
	p.mu.Unlock()
	if held {
		return
	}
	if _, err := p.cache.DeleteCache(ctx, key); err != nil {
		slog.Warn("Failed to evict LLM response", "profile", req.Profile, "error", err)
		return
	}
	slog.Debug("Evicted rejected LLM response", "profile", req.Profile)
}

// HealthCheck implements llm.Provider.
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.next.HealthCheck(ctx)
}

// HasProfile implements llm.Provider.
func (p *Provider) HasProfile(name string) bool {
	return p.next.HasProfile(name)
}

func (p *Provider) trackHit(hit bool) {
	if p.tracker == nil {
		return
	}
	if hit {
		p.tracker.TrackCacheHit(trackerName)
	} else {
		p.tracker.TrackCacheMiss(trackerName)
	}
}
