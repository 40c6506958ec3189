package teamflow

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/chin3/hat-manager/hat"
)

// Session is one user's conversation context. Start and Resume on the same
// session are serialized; separate sessions never share mutable state.
type Session struct {
	ID string

	runMu sync.Mutex

	mu        sync.RWMutex
	state     State
	activeHat *hat.Hat
	retries   map[string]int
}

// NewSession creates an idle session.
func NewSession(id string) *Session {
	return &Session{ID: id, state: StateIdle, retries: make(map[string]int)}
}

// State returns the session's flow state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// ActiveHat returns a copy of the hat the session is currently wearing, or nil.
func (s *Session) ActiveHat() *hat.Hat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeHat.Clone()
}

// Wear makes h the session's active hat; nil takes the hat off.
func (s *Session) Wear(h *hat.Hat) {
	s.mu.Lock()
	s.activeHat = h.Clone()
	s.mu.Unlock()
}

// RetryCounts returns a copy of the per-hat retry counters of the current run.
func (s *Session) RetryCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.retries))
	for k, v := range s.retries {
		out[k] = v
	}
	return out
}

func (s *Session) incrementRetry(hatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries[hatID]++
	return s.retries[hatID]
}

func (s *Session) resetRetries() {
	s.mu.Lock()
	s.retries = make(map[string]int)
	s.mu.Unlock()
}

// SessionRegistry hands out sessions by id.
type SessionRegistry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	snapshots SnapshotStore
}

// NewSessionRegistry creates a registry. Closing a session deletes its
// snapshot from snapshots.
func NewSessionRegistry(snapshots SnapshotStore) *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session), snapshots: snapshots}
}

// Get returns the session with id, creating it on first use.
func (r *SessionRegistry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = NewSession(id)
		r.sessions[id] = s
	}
	return s
}

// Lookup returns an existing session.
func (r *SessionRegistry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// IDs lists known session ids in sorted order.
func (r *SessionRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close tears a session down, discarding any suspended flow.
func (r *SessionRegistry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if r.snapshots == nil {
		return nil
	}
	if err := r.snapshots.Delete(ctx, id); err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return err
	}
	return nil
}
