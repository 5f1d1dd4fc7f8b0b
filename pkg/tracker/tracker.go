// Package tracker counts outbound calls and cache use per provider for the
// end-of-run summary.
package tracker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ProviderStats is a point-in-time copy of one provider's counters.
type ProviderStats struct {
	CacheHits     int64
	CacheMisses   int64
	APISuccess    int64
	APIFailures   int64
	APIZeroResult int64 // Calls that succeeded but produced nothing usable
}

// Calls is the number of API calls that reached the provider.
func (s ProviderStats) Calls() int64 {
	return s.APISuccess + s.APIFailures
}

type counters struct {
	cacheHits, cacheMisses        atomic.Int64
	apiSuccess, apiFailures, zero atomic.Int64
}

// Tracker is safe for concurrent use. The zero value is not usable; call New.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*counters
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{stats: make(map[string]*counters)}
}

func (t *Tracker) get(provider string) *counters {
	t.mu.RLock()
	c, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.stats[provider]; !ok {
		c = &counters{}
		t.stats[provider] = c
	}
	return c
}

func (t *Tracker) TrackCacheHit(provider string)   { t.get(provider).cacheHits.Add(1) }
func (t *Tracker) TrackCacheMiss(provider string)  { t.get(provider).cacheMisses.Add(1) }
func (t *Tracker) TrackAPISuccess(provider string) { t.get(provider).apiSuccess.Add(1) }
func (t *Tracker) TrackAPIFailure(provider string) { t.get(provider).apiFailures.Add(1) }
func (t *Tracker) TrackAPIZero(provider string)    { t.get(provider).zero.Add(1) }

// Snapshot copies the current counters.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]ProviderStats, len(t.stats))
	for name, c := range t.stats {
		out[name] = ProviderStats{
			CacheHits:     c.cacheHits.Load(),
			CacheMisses:   c.cacheMisses.Load(),
			APISuccess:    c.apiSuccess.Load(),
			APIFailures:   c.apiFailures.Load(),
			APIZeroResult: c.zero.Load(),
		}
	}
	return out
}

// Summary renders one line per provider, sorted by name.
func (t *Tracker) Summary() string {
	snap := t.Snapshot()
	if len(snap) == 0 {
		return "no provider activity"
	}
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		s := snap[name]
		line := fmt.Sprintf("%-16s calls=%d fail=%d", name, s.Calls(), s.APIFailures)
		if s.APIZeroResult > 0 {
			line += fmt.Sprintf(" empty=%d", s.APIZeroResult)
		}
		if lookups := s.CacheHits + s.CacheMisses; lookups > 0 {
			line += fmt.Sprintf(" cache=%d/%d", s.CacheHits, lookups)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
