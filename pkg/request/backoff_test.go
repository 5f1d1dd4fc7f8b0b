package request

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProviderBackoff_ExponentialDelay(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		baseDelay time.Duration
		maxDelay  time.Duration
		wantMinMs int64
		wantMaxMs int64
	}{
		{"First failure", 1, 1 * time.Second, 60 * time.Second, 1000, 1200},
		{"Second failure", 2, 1 * time.Second, 60 * time.Second, 2000, 2400},
		{"Third failure", 3, 1 * time.Second, 60 * time.Second, 4000, 4800},
		{"Max cap hit", 10, 1 * time.Second, 60 * time.Second, 60000, 66000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewProviderBackoff(tt.baseDelay, tt.maxDelay)

			// Simulate failures
			for i := 0; i < tt.failures; i++ {
				b.RecordFailure("test-provider")
			}

			fc, nextAllowed := b.GetState("test-provider")
			if fc != tt.failures {
				t.Errorf("failureCount = %d, want %d", fc, tt.failures)
			}

			delay := time.Until(nextAllowed)
			delayMs := delay.Milliseconds()

			// Allow some tolerance for jitter and timing
			if delayMs < tt.wantMinMs || delayMs > tt.wantMaxMs {
				t.Errorf("delay = %dms, want between %dms and %dms", delayMs, tt.wantMinMs, tt.wantMaxMs)
			}
		})
	}
}

func TestProviderBackoff_GradualRecovery(t *testing.T) {
	b := NewProviderBackoff(1*time.Second, 60*time.Second)

	// Build up failures
	b.RecordFailure("provider")
	b.RecordFailure("provider")
	b.RecordFailure("provider")

	fc, _ := b.GetState("provider")
	if fc != 3 {
		t.Errorf("after 3 failures, count = %d, want 3", fc)
	}

	// Gradual recovery
	b.RecordSuccess("provider")
	fc, _ = b.GetState("provider")
	if fc != 2 {
		t.Errorf("after 1 success, count = %d, want 2", fc)
	}

	b.RecordSuccess("provider")
	b.RecordSuccess("provider")
	fc, _ = b.GetState("provider")
	if fc != 0 {
		t.Errorf("after full recovery, count = %d, want 0", fc)
	}
}

func TestProviderBackoff_IsolatedProviders(t *testing.T) {
	b := NewProviderBackoff(1*time.Second, 60*time.Second)

	b.RecordFailure("edge-tts")
	b.RecordFailure("edge-tts")

	fc1, _ := b.GetState("edge-tts")
	fc2, _ := b.GetState("openai-tts")

	if fc1 != 2 {
		t.Errorf("edge-tts failures = %d, want 2", fc1)
	}
	if fc2 != 0 {
		t.Errorf("openai-tts failures = %d, want 0 (isolated)", fc2)
	}
}

func TestProviderBackoff_WaitRespectsContext(t *testing.T) {
	b := NewProviderBackoff(10*time.Second, 60*time.Second)
	b.RecordFailure("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Wait(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait ignored context cancellation")
	}

	if err := b.Wait(context.Background(), "fresh"); err != nil {
		t.Errorf("unknown provider should not wait, got %v", err)
	}
}

func TestProviderBackoff_Do(t *testing.T) {
	errThrottled := errors.New("429")
	errFatal := errors.New("401")
	retryable := func(err error) bool { return errors.Is(err, errThrottled) }

	tests := []struct {
		name      string
		results   []error
		wantErr   error
		wantCalls int
	}{
		{"success first", []error{nil}, nil, 1},
		{"throttled then ok", []error{errThrottled, nil}, nil, 2},
		{"non-retryable stops", []error{errFatal, nil}, errFatal, 1},
		{"exhausted", []error{errThrottled, errThrottled, errThrottled}, errThrottled, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewProviderBackoff(time.Millisecond, 5*time.Millisecond)
			calls := 0
			err := b.Do(context.Background(), "p", 3, retryable, func(context.Context) error {
				err := tt.results[calls]
				calls++
				return err
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("Do error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

type hintedErr struct{ d time.Duration }

func (e hintedErr) Error() string                 { return "429 with retry-after" }
func (e hintedErr) RetryAfterHint() time.Duration { return e.d }

func TestProviderBackoff_RetryAfterHint(t *testing.T) {
	b := NewProviderBackoff(time.Millisecond, 40*time.Millisecond)
	calls := 0
	start := time.Now()
	err := b.Do(context.Background(), "p", 2, func(error) bool { return true }, func(context.Context) error {
		calls++
		if calls == 1 {
			return hintedErr{d: 30 * time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("retry ran after %v, want the 30ms hint honored", elapsed)
	}
}

func TestProviderBackoff_RecoveryForgetsProvider(t *testing.T) {
	b := NewProviderBackoff(time.Second, time.Minute)
	b.RecordFailure("p")
	b.RecordSuccess("p")
	if fc, next := b.GetState("p"); fc != 0 || !next.IsZero() {
		t.Errorf("state after recovery = %d, %v", fc, next)
	}
}
