package tracker

import (
	"strings"
	"sync"
	"testing"
)

func TestTracker_Counters(t *testing.T) {
	tr := New()
	if len(tr.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackAPISuccess("gemini")
			tr.TrackCacheMiss("llm-cache")
		}()
	}
	wg.Wait()
	tr.TrackAPIFailure("gemini")
	tr.TrackAPIZero("gemini")
	tr.TrackCacheHit("llm-cache")

	snap := tr.Snapshot()
	g := snap["gemini"]
	if g.APISuccess != 50 || g.APIFailures != 1 || g.APIZeroResult != 1 {
		t.Errorf("gemini stats = %+v", g)
	}
	if g.Calls() != 51 {
		t.Errorf("Calls() = %d, want 51", g.Calls())
	}
	c := snap["llm-cache"]
	if c.CacheHits != 1 || c.CacheMisses != 50 {
		t.Errorf("cache stats = %+v", c)
	}
}

func TestTracker_Summary(t *testing.T) {
	tr := New()
	if got := tr.Summary(); got != "no provider activity" {
		t.Errorf("empty summary = %q", got)
	}

	tr.TrackAPISuccess("openai")
	tr.TrackCacheHit("llm-cache")
	tr.TrackCacheMiss("llm-cache")
	tr.TrackAPIFailure("edge-tts")
	tr.TrackAPIZero("openai")

	lines := strings.Split(tr.Summary(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", lines)
	}
	tests := []struct {
		prefix   string
		contains string
		absent   string
	}{
		{"edge-tts", "calls=1 fail=1", "cache="},
		{"llm-cache", "cache=1/2", "empty="},
		{"openai", "empty=1", "cache="},
	}
	for i, tt := range tests {
		if !strings.HasPrefix(lines[i], tt.prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], tt.prefix)
		}
		if !strings.Contains(lines[i], tt.contains) {
			t.Errorf("line %d = %q, want %q", i, lines[i], tt.contains)
		}
		if strings.Contains(lines[i], tt.absent) {
			t.Errorf("line %d = %q, must not contain %q", i, lines[i], tt.absent)
		}
	}
}
