package notify

import (
	"context"
	"sync"

	"github.com/chin3/hat-manager/teamflow"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub fans events out to per-session subscribers. Slow subscribers lose
// events rather than stalling the flow.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	logger *zap.Logger
}

type subscriber struct {
	ch     chan teamflow.Event
	once   sync.Once
	closed bool
}

// NewHub creates a hub. buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
		logger: logger.With(zap.String("component", "event_hub")),
	}
}

// Subscribe registers for a session's events. The returned cancel function
// unregisters and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(sessionID string) (<-chan teamflow.Event, func()) {
	sub := &subscriber{ch: make(chan teamflow.Event, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], sub)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			sub.closed = true
			close(sub.ch)
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Subscribers returns how many subscribers a session has.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Notify implements teamflow.Notifier.
func (h *Hub) Notify(_ context.Context, ev teamflow.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.SessionID] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("subscriber queue full, event dropped",
				zap.String("session_id", ev.SessionID),
				zap.String("event", string(ev.Type)))
		}
	}
}
