package hat

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps hats in process memory, in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	hats  map[string]*Hat
	order []string
}

// NewMemoryStore creates an empty store, optionally seeded with hats.
func NewMemoryStore(seed ...*Hat) *MemoryStore {
	s := &MemoryStore{hats: make(map[string]*Hat)}
	for _, h := range seed {
		_ = s.Put(context.Background(), h)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Hat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hats[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Hat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Hat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.hats[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) ListByTeam(ctx context.Context, teamID string) ([]*Hat, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return TeamMembers(all, teamID), nil
}

func (s *MemoryStore) Put(ctx context.Context, h *Hat) error {
	if err := validate(h); err != nil {
		return err
	}
	c := h.Clone()
	Normalize(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hats[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.hats[c.ID] = c
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hats[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.hats, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
