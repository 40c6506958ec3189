package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chin3/hat-manager/notify"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// =============================================================================
// 📡 会话事件流（WebSocket）
// =============================================================================

// EventStreamHandler 把会话的流程事件推送给 WebSocket 客户端
type EventStreamHandler struct {
	hub            *notify.Hub
	originPatterns []string
	writeTimeout   time.Duration
	logger         *zap.Logger
}

// NewEventStreamHandler 创建事件流处理器。originPatterns 为空时只接受同源请求。
func NewEventStreamHandler(hub *notify.Hub, originPatterns []string, logger *zap.Logger) *EventStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStreamHandler{
		hub:            hub,
		originPatterns: originPatterns,
		writeTimeout:   10 * time.Second,
		logger:         logger.With(zap.String("handler", "events")),
	}
}

// Register 注册路由
func (h *EventStreamHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/sessions/{id}/events", h.HandleStream)
}

// HandleStream 升级为 WebSocket，并逐条以 JSON 文本帧发送事件，直到任一端关闭
func (h *EventStreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	events, cancel := h.hub.Subscribe(id)
	defer cancel()

	// 客户端只接收，不发送；CloseRead 负责处理控制帧并在对端关闭时结束 ctx
	ctx := conn.CloseRead(r.Context())

	h.logger.Debug("event stream opened", zap.String("session_id", id))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, h.writeTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancelWrite()
			if err != nil {
				h.logger.Debug("event stream write failed", zap.String("session_id", id), zap.Error(err))
				return
			}
		}
	}
}
