package httpadapter

import (
	"sync"
	"time"

	"github.com/wramadhan/griya/internal/core/domain"
)

// SessionRegistry maps session ids to their conversation state and evicts
// entries that have been idle longer than the TTL. Eviction is piggybacked
// on lookups, no background goroutine.
type SessionRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	state    *domain.SessionState
	lastSeen time.Time
}

func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionRegistry{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Acquire returns the state for the id, creating it on first use.
func (r *SessionRegistry) Acquire(id string) *domain.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpiredLocked()

	entry, ok := r.sessions[id]
	if !ok {
		entry = &sessionEntry{state: domain.NewSessionState(id)}
		r.sessions[id] = entry
	}
	entry.lastSeen = r.now()
	return entry.state
}

// Lookup returns the state only if the session already exists.
func (r *SessionRegistry) Lookup(id string) (*domain.SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpiredLocked()

	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.state, true
}

func (r *SessionRegistry) evictExpiredLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
