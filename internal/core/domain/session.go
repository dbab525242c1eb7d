package domain

import "sync"

// SessionState is per-conversation memory, owned and passed in by the
// caller. It exists so follow-up turns can reference "result #3" from the
// previous reply without the core keeping a process-wide cache.
type SessionState struct {
	id string

	mu           sync.Mutex
	lastCriteria *SearchCriteria
	lastResults  []RankedListing
}

func NewSessionState(id string) *SessionState {
	return &SessionState{id: id}
}

func (s *SessionState) ID() string { return s.id }

func (s *SessionState) Remember(criteria SearchCriteria, results []RankedListing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := criteria
	s.lastCriteria = &c
	s.lastResults = append([]RankedListing(nil), results...)
}

// ResultAt returns the n-th result of the previous turn, 1-based.
func (s *SessionState) ResultAt(n int) (RankedListing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.lastResults) {
		return RankedListing{}, false
	}
	return s.lastResults[n-1], true
}

func (s *SessionState) LastCriteria() (SearchCriteria, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCriteria == nil {
		return SearchCriteria{}, false
	}
	return *s.lastCriteria, true
}

func (s *SessionState) ResultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastResults)
}
