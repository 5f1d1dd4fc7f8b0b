package failover

import "sync"

// skipper tracks consecutive failures per provider and profile. After n
// failures in a row the pair is passed over for the next n requests.
type skipper struct {
	mu    sync.Mutex
	state map[string]*skipState
}

type skipState struct {
	failures int
	skipped  int
}

func newSkipper() *skipper {
	return &skipper{state: make(map[string]*skipState)}
}

func (s *skipper) skip(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[key]
	if !ok || st.skipped >= st.failures {
		return false
	}
	st.skipped++
	return true
}

func (s *skipper) fail(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[key]
	if !ok {
		st = &skipState{}
		s.state[key] = st
	}
	st.failures++
	st.skipped = 0
	return st.failures
}

func (s *skipper) reset(key string) {
	s.mu.Lock()
	delete(s.state, key)
	s.mu.Unlock()
}
