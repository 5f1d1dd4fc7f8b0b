// Package failover chains several LLM providers behind one llm.Provider.
package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"explainergo/pkg/llm"
	"explainergo/pkg/request"
)

// lastAttempts is how often the final provider in the chain is tried before
// the request fails.
const lastAttempts = 4

type member struct {
	name     string
	p        llm.Provider
	disabled atomic.Bool
}

// Provider tries each member in order. A member that fails transiently sits
// out as many following requests as it has failed in a row; a member that
// fails fatally is disabled for the session. The last member is never
// skipped or disabled and retries with backoff instead.
type Provider struct {
	members []*member
	skips   *skipper
	retry   *request.ProviderBackoff
	history *history
}

// New creates a Provider. names labels each entry of providers; an empty
// logPath disables the request history file.
func New(providers []llm.Provider, names []string, logPath string) (*Provider, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider required for failover")
	}
	if len(providers) != len(names) {
		return nil, fmt.Errorf("provider count (%d) does not match name count (%d)", len(providers), len(names))
	}
	f := &Provider{
		skips:   newSkipper(),
		retry:   request.NewProviderBackoff(time.Second, 8*time.Second),
		history: newHistory(logPath),
	}
	for i, p := range providers {
		f.members = append(f.members, &member{name: names[i], p: p})
	}
	return f, nil
}

// Generate implements llm.Provider.
func (f *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	chain := f.active(req.Profile)
	if len(chain) == 0 {
		return "", fmt.Errorf("no active provider supports profile %q", req.Profile)
	}

	var err error
	for i, m := range chain {
		key := m.name + ":" + req.Profile
		last := i == len(chain)-1

		if !last && f.skips.skip(key) {
			slog.Debug("LLM provider in backoff, skipping", "provider", m.name, "profile", req.Profile)
			continue
		}

		var res string
		if last {
			res, err = f.callWithRetry(ctx, m, req)
		} else {
			res, err = f.call(ctx, m, req)
		}
		if err == nil {
			f.skips.reset(key)
			return res, nil
		}

		switch llm.Classify(err) {
		case llm.Canceled:
			return "", err
		case llm.Fatal:
			if last {
				return "", err
			}
			slog.Warn("LLM provider fatal error, disabling for the session", "provider", m.name, "error", err)
			m.disabled.Store(true)
			continue
		}
		if last {
			return "", err
		}
		n := f.skips.fail(key)
		slog.Info("LLM provider failed (retryable), falling back", "provider", m.name, "next", chain[i+1].name, "error", err, "backoff_failures", n)
	}
	return "", fmt.Errorf("all LLM providers exhausted for profile %q: %w", req.Profile, err)
}

func (f *Provider) call(ctx context.Context, m *member, req llm.Request) (string, error) {
	res, err := m.p.Generate(ctx, req)
	f.history.record(m.name, req, res, err)
	return res, err
}

func (f *Provider) callWithRetry(ctx context.Context, m *member, req llm.Request) (string, error) {
	var res string
	transient := func(err error) bool { return llm.Classify(err) == llm.Transient }
	err := f.retry.Do(ctx, m.name, lastAttempts, transient, func(ctx context.Context) error {
		var err error
		res, err = f.call(ctx, m, req)
		return err
	})
	if err != nil && transient(err) {
		return "", fmt.Errorf("%s gave up after %d attempts: %w", m.name, lastAttempts, err)
	}
	return res, err
}

func (f *Provider) active(profile string) []*member {
	var out []*member
	for _, m := range f.members {
		if !m.disabled.Load() && m.p.HasProfile(profile) {
			out = append(out, m)
		}
	}
	return out
}

// HasProfile implements llm.Provider.
func (f *Provider) HasProfile(name string) bool {
	return len(f.active(name)) > 0
}

// HealthCheck succeeds as soon as one enabled member is healthy.
func (f *Provider) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, m := range f.members {
		if m.disabled.Load() {
			continue
		}
		err := m.p.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
	}
	if len(errs) == 0 {
		return errors.New("no providers available in failover chain")
	}
	return fmt.Errorf("all LLM providers failed health check: %w", errors.Join(errs...))
}
