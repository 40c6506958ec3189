package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/chin3/hat-manager/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎩 会话 Handler
// =============================================================================

// SessionHandler 处理团队流程的启动、恢复与会话管理
type SessionHandler struct {
	orch     *teamflow.Orchestrator
	sessions *teamflow.SessionRegistry
	hats     hat.Store
	logger   *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(orch *teamflow.Orchestrator, sessions *teamflow.SessionRegistry, hats hat.Store, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		orch:     orch,
		sessions: sessions,
		hats:     hats,
		logger:   logger.With(zap.String("handler", "session")),
	}
}

// Register 注册会话路由
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/sessions", h.HandleList)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.HandleGet)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.HandleClose)
	mux.HandleFunc("POST /api/v1/sessions/{id}/runs", h.HandleStart)
	mux.HandleFunc("POST /api/v1/sessions/{id}/resume", h.HandleResume)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/hat", h.HandleWear)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/hat", h.HandleTakeOff)
}

// StartRequest 启动团队流程的请求体
type StartRequest struct {
	TeamID string `json:"team_id"`
	Goal   string `json:"goal"`
}

// ResumeRequest 挂起流程的决策（approve / retry）
type ResumeRequest struct {
	Input string `json:"input"`
}

// WearRequest 切换当前 Hat
type WearRequest struct {
	HatID string `json:"hat_id"`
}

// OutcomeResponse 包装流程结果，附带归档失败信息
type OutcomeResponse struct {
	*teamflow.Outcome
	MissionError string `json:"mission_error,omitempty"`
}

// SessionView 会话当前状态
type SessionView struct {
	ID          string             `json:"id"`
	State       teamflow.State     `json:"state"`
	ActiveHat   *hat.Hat           `json:"active_hat,omitempty"`
	RetryCounts map[string]int     `json:"retry_counts"`
	Pending     *teamflow.Snapshot `json:"pending,omitempty"`
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleStart 启动团队流程，返回时流程已挂起等待审批或已终止
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}
	var req StartRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	// 客户端断开不应中断已开始的流程，进度仍通过事件流送达
	ctx := context.WithoutCancel(r.Context())
	out, err := h.orch.Start(ctx, h.sessions.Get(id), strings.TrimSpace(req.TeamID), req.Goal)
	h.writeOutcome(w, out, err)
}

// HandleResume 对挂起的流程做出决策
func (h *SessionHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}
	var req ResumeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	out, err := h.orch.Resume(ctx, h.sessions.Get(id), req.Input)
	h.writeOutcome(w, out, err)
}

func (h *SessionHandler) writeOutcome(w http.ResponseWriter, out *teamflow.Outcome, err error) {
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	resp := OutcomeResponse{Outcome: out}
	if out.MissionErr != nil {
		resp.MissionError = out.MissionErr.Error()
	}
	WriteSuccess(w, resp)
}

// HandleGet 返回会话状态与挂起的快照
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}
	sess, found := h.sessions.Lookup(id)
	if !found {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest, "session not found", h.logger)
		return
	}

	view := SessionView{
		ID:          sess.ID,
		State:       sess.State(),
		ActiveHat:   sess.ActiveHat(),
		RetryCounts: sess.RetryCounts(),
	}
	snap, err := h.orch.Snapshots().Get(r.Context(), id)
	switch {
	case err == nil:
		view.Pending = snap
	case !errors.Is(err, teamflow.ErrSnapshotNotFound):
		WriteError(w, types.NewError(types.ErrInternalError, "load pending flow").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, view)
}

// HandleList 列出已知会话
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.sessions.IDs())
}

// HandleClose 关闭会话并丢弃挂起的流程
func (h *SessionHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.sessions.Close(r.Context(), id); err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "close session").WithCause(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWear 让会话戴上指定的 Hat
func (h *SessionHandler) HandleWear(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}
	var req WearRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	sess := h.sessions.Get(id)
	if sess.State() == teamflow.StateRunning {
		WriteErrorMessage(w, http.StatusConflict, types.ErrInvalidTransition, "cannot change hats while a flow is running", h.logger)
		return
	}

	found, err := h.hats.Get(r.Context(), req.HatID)
	if err != nil {
		WriteError(w, hatLookupError(req.HatID, err), h.logger)
		return
	}
	sess.Wear(found)
	WriteSuccess(w, found)
}

// HandleTakeOff 摘下当前 Hat
func (h *SessionHandler) HandleTakeOff(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r, h.logger)
	if !ok {
		return
	}
	sess := h.sessions.Get(id)
	if sess.State() == teamflow.StateRunning {
		WriteErrorMessage(w, http.StatusConflict, types.ErrInvalidTransition, "cannot change hats while a flow is running", h.logger)
		return
	}
	sess.Wear(nil)
	w.WriteHeader(http.StatusNoContent)
}

func hatLookupError(id string, err error) error {
	if errors.Is(err, hat.ErrNotFound) {
		return types.NewError(types.ErrHatNotFound, "hat not found: "+id).WithCause(err)
	}
	return types.NewError(types.ErrInternalError, "load hat").WithCause(err)
}
