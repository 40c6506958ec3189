package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps entries in process memory. MaxPerHat bounds each hat's
// history; the oldest entries are dropped first. Zero means unbounded.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   map[string][]Entry
	maxPerHat int
	now       func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(maxPerHat int) *InMemoryStore {
	return &InMemoryStore{
		entries:   make(map[string][]Entry),
		maxPerHat: maxPerHat,
		now:       time.Now,
	}
}

func (s *InMemoryStore) Append(ctx context.Context, hatID, text string, role Role, tags []string) error {
	if hatID == "" {
		return ErrInvalidInput
	}
	e := Entry{
		ID:        uuid.NewString(),
		HatID:     hatID,
		Role:      role,
		Text:      text,
		Tags:      append([]string(nil), tags...),
		Timestamp: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.entries[hatID], e)
	if s.maxPerHat > 0 && len(list) > s.maxPerHat {
		list = list[len(list)-s.maxPerHat:]
	}
	s.entries[hatID] = list
	return nil
}

func (s *InMemoryStore) Query(ctx context.Context, hatID, text string, k int) ([]Match, error) {
	s.mu.RLock()
	snapshot := append([]Entry(nil), s.entries[hatID]...)
	s.mu.RUnlock()
	return rank(snapshot, text, k), nil
}

func (s *InMemoryStore) Clear(ctx context.Context, hatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, hatID)
	return nil
}

// Len returns how many entries are held for a hat.
func (s *InMemoryStore) Len(hatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[hatID])
}
