package teamflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/memory"
	"github.com/stretchr/testify/require"
)

// scripted replies per hat id. The last reply of a hat repeats.
type scripted struct {
	mu      sync.Mutex
	replies map[string][]string
	errs    map[string]error
	calls   []scriptedCall
}

type scriptedCall struct {
	HatID  string
	Prompt string
}

func newScripted() *scripted {
	return &scripted{replies: make(map[string][]string), errs: make(map[string]error)}
}

func (s *scripted) on(hatID string, replies ...string) *scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[hatID] = append(s.replies[hatID], replies...)
	return s
}

func (s *scripted) fail(hatID string, err error) *scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[hatID] = err
	return s
}

func (s *scripted) Generate(ctx context.Context, prompt string, h *hat.Hat) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scriptedCall{HatID: h.ID, Prompt: prompt})
	if err := s.errs[h.ID]; err != nil {
		return "", err
	}
	q := s.replies[h.ID]
	if len(q) == 0 {
		return "", fmt.Errorf("no scripted reply for %s", h.ID)
	}
	out := q[0]
	if len(q) > 1 {
		s.replies[h.ID] = q[1:]
	}
	return out, nil
}

func (s *scripted) callsFor(hatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.HatID == hatID {
			n++
		}
	}
	return n
}

// eventLog records notifications in order.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Notify(_ context.Context, ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

type harness struct {
	orch      *Orchestrator
	hats      *hat.MemoryStore
	memory    *memory.InMemoryStore
	snapshots *MemorySnapshotStore
	events    *eventLog
	responder *scripted
}

func newHarness(t require.TestingT, responder *scripted, finalizer *Finalizer, hats ...*hat.Hat) *harness {
	h := &harness{
		hats:      hat.NewMemoryStore(hats...),
		memory:    memory.NewInMemoryStore(0),
		snapshots: NewMemorySnapshotStore(),
		events:    &eventLog{},
		responder: responder,
	}
	orch, err := NewOrchestrator(Options{
		Hats:      h.hats,
		Memory:    h.memory,
		Responder: responder,
		Finalizer: finalizer,
		Snapshots: h.snapshots,
		Notifier:  h.events,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}
