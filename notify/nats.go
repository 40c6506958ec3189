package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chin3/hat-manager/teamflow"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is the subject root for session events.
const DefaultSubjectPrefix = "hatflow.sessions"

// Subject returns the subject a session's events are published on.
func Subject(prefix, sessionID string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return fmt.Sprintf("%s.%s.events", prefix, sessionID)
}

// Connect dials NATS with reconnect handling that logs through zap.
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "nats"))
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes team flow events as JSON.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	origin string
	logger *zap.Logger
}

// NewNATSPublisher creates a publisher. origin tags messages so a Bridge on
// the same replica can skip its own events.
func NewNATSPublisher(conn *nats.Conn, prefix, origin string, logger *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: prefix,
		origin: origin,
		logger: logger.With(zap.String("component", "nats_publisher")),
	}
}

// Notify implements teamflow.Notifier. Publish failures are logged.
func (p *NATSPublisher) Notify(_ context.Context, ev teamflow.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("encode event", zap.Error(err))
		return
	}
	msg := nats.NewMsg(Subject(p.prefix, ev.SessionID))
	msg.Data = data
	if p.origin != "" {
		msg.Header.Set(originHeader, p.origin)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Warn("publish event failed",
			zap.String("session_id", ev.SessionID),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
	}
}

const originHeader = "Hatflow-Origin"

// Bridge feeds events published by other replicas into a local notifier.
type Bridge struct {
	sub    *nats.Subscription
	logger *zap.Logger
}

// StartBridge subscribes to every session's events under prefix. Messages
// carrying origin are skipped since the local replica already delivered them.
func StartBridge(conn *nats.Conn, prefix, origin string, target teamflow.Notifier, logger *zap.Logger) (*Bridge, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "nats_bridge"))

	sub, err := conn.Subscribe(prefix+".*.events", func(msg *nats.Msg) {
		if origin != "" && msg.Header.Get(originHeader) == origin {
			return
		}
		var ev teamflow.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warn("drop undecodable event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		if ev.SessionID == "" {
			ev.SessionID = sessionFromSubject(prefix, msg.Subject)
		}
		target.Notify(context.Background(), ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	return &Bridge{sub: sub, logger: logger}, nil
}

// Close stops the bridge.
func (b *Bridge) Close() error {
	return b.sub.Unsubscribe()
}

func sessionFromSubject(prefix, subject string) string {
	rest := strings.TrimPrefix(subject, prefix+".")
	return strings.TrimSuffix(rest, ".events")
}
