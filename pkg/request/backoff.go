package request

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// ProviderBackoff spaces out calls to providers that recently failed. Each
// provider backs off on its own: the delay doubles per consecutive failure up
// to the cap and shrinks again one step per success.
type ProviderBackoff struct {
	mu        sync.RWMutex
	providers map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failures    int
	nextAllowed time.Time
}

// RetryAfterHinter is implemented by errors that carry a server-requested
// delay, such as a Retry-After header.
type RetryAfterHinter interface {
	RetryAfterHint() time.Duration
}

// NewProviderBackoff creates a backoff with the given first delay and cap.
func NewProviderBackoff(baseDelay, maxDelay time.Duration) *ProviderBackoff {
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &ProviderBackoff{
		providers: make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until provider may be called again or ctx ends.
func (b *ProviderBackoff) Wait(ctx context.Context, provider string) error {
	_, next := b.GetState(provider)
	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RecordFailure counts a failure and pushes the provider's next slot out.
func (b *ProviderBackoff) RecordFailure(provider string) {
	b.recordFailure(provider, 0)
}

func (b *ProviderBackoff) recordFailure(provider string, atLeast time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.providers[provider]
	if !ok {
		st = &backoffState{}
		b.providers[provider] = st
	}
	st.failures++
	delay := max(b.delayFor(st.failures), atLeast)
	st.nextAllowed = time.Now().Add(delay)
}

// RecordSuccess takes one failure off the provider's count. The slot clears
// once the count is back to zero.
func (b *ProviderBackoff) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.providers[provider]
	if !ok {
		return
	}
	if st.failures > 0 {
		st.failures--
	}
	if st.failures == 0 {
		delete(b.providers, provider)
	}
}

// Do runs fn, waiting out the provider's backoff before each attempt. Errors
// for which retryable returns true are recorded and retried up to attempts
// times; anything else is returned as is. A Retry-After hint on the error
// lengthens the wait.
func (b *ProviderBackoff) Do(ctx context.Context, provider string, attempts int, retryable func(error) bool, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if werr := b.Wait(ctx, provider); werr != nil {
			return werr
		}
		err = fn(ctx)
		if err == nil {
			b.RecordSuccess(provider)
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}

		var hint time.Duration
		var h RetryAfterHinter
		if errors.As(err, &h) {
			hint = min(h.RetryAfterHint(), b.maxDelay)
		}
		b.recordFailure(provider, hint)
		fc, next := b.GetState(provider)
		slog.Warn("Provider throttled, backing off", "provider", provider, "attempt", i, "failures", fc, "retry_in", time.Until(next).Round(time.Millisecond), "error", err)
	}
	return err
}

// delayFor returns base * 2^(failures-1), capped, plus up to 10% jitter.
func (b *ProviderBackoff) delayFor(failures int) time.Duration {
	delay := b.maxDelay
	if shift := failures - 1; shift < 32 {
		if d := b.baseDelay << shift; d > 0 && d < b.maxDelay {
			delay = d
		}
	}
	return delay + time.Duration(rand.Float64()*0.1*float64(delay))
}

// GetState returns the failure count and next allowed call time of provider.
func (b *ProviderBackoff) GetState(provider string) (failures int, nextAllowed time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if st, ok := b.providers[provider]; ok {
		return st.failures, st.nextAllowed
	}
	return 0, time.Time{}
}
