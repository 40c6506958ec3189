package teamflow

import (
	"context"
	"time"

	"github.com/chin3/hat-manager/types"
	"go.uber.org/zap"
)

// EventType names a progress notification.
type EventType string

const (
	EventFlowStarted       EventType = "flow_started"
	EventStep              EventType = "step"
	EventRetryScheduled    EventType = "retry_scheduled"
	EventRetryLimitReached EventType = "retry_limit_reached"
	EventSuspended         EventType = "suspended"
	EventReprompt          EventType = "reprompt"
	EventCompleted         EventType = "completed"
	EventAbandoned         EventType = "abandoned"
	EventMissionArchived   EventType = "mission_archived"
	EventWarning           EventType = "warning"
)

// Event is one progress notification for a session.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	RunID     string          `json:"run_id,omitempty"`
	TeamID    string          `json:"team_id,omitempty"`
	State     State           `json:"state"`
	Step      *types.FlowStep `json:"step,omitempty"`
	Verdict   string          `json:"verdict,omitempty"`
	Pending   string          `json:"pending,omitempty"`
	Outcome   string          `json:"outcome,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notifier receives progress events. Implementations must not block the flow
// for long and report their own delivery failures.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// MultiNotifier fans an event out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// LogNotifier writes events to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs every event at info level.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.With(zap.String("component", "flow_events"))}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) {
	fields := []zap.Field{
		zap.String("event", string(ev.Type)),
		zap.String("session_id", ev.SessionID),
		zap.String("run_id", ev.RunID),
		zap.String("state", string(ev.State)),
	}
	if ev.Step != nil {
		fields = append(fields, zap.String("hat", ev.Step.HatName), zap.String("kind", string(ev.Step.Kind)))
	}
	if ev.Verdict != "" {
		fields = append(fields, zap.String("verdict", ev.Verdict))
	}
	if ev.Message != "" {
		fields = append(fields, zap.String("message", ev.Message))
	}
	n.logger.Info("team flow event", fields...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}
