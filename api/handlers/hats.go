package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/chin3/hat-manager/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🧢 Hat / 团队 Handler
// =============================================================================

// HatHandler 管理 Hat 定义、模板、记忆与团队提案
type HatHandler struct {
	hats      hat.Store
	memory    memory.Store
	responder teamflow.Responder
	model     string
	logger    *zap.Logger
	now       func() time.Time
}

// NewHatHandler 创建 Hat 处理器。responder 为 nil 时团队提案不可用。
func NewHatHandler(hats hat.Store, mem memory.Store, responder teamflow.Responder, model string, logger *zap.Logger) *HatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HatHandler{
		hats:      hats,
		memory:    mem,
		responder: responder,
		model:     model,
		logger:    logger.With(zap.String("handler", "hat")),
		now:       time.Now,
	}
}

// Register 注册 Hat 与团队路由
func (h *HatHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/hats", h.HandleList)
	mux.HandleFunc("GET /api/v1/hats/{id}", h.HandleGet)
	mux.HandleFunc("PUT /api/v1/hats/{id}", h.HandlePut)
	mux.HandleFunc("DELETE /api/v1/hats/{id}", h.HandleDelete)
	mux.HandleFunc("POST /api/v1/hats/{id}/template", h.HandleRegisterTemplate)
	mux.HandleFunc("POST /api/v1/hats/{id}/clone", h.HandleClone)
	mux.HandleFunc("GET /api/v1/hats/{id}/clones", h.HandleClones)
	mux.HandleFunc("GET /api/v1/hats/{id}/memories", h.HandleMemories)
	mux.HandleFunc("DELETE /api/v1/hats/{id}/memories", h.HandleClearMemories)
	mux.HandleFunc("GET /api/v1/teams/{team}/hats", h.HandleTeam)
	mux.HandleFunc("POST /api/v1/teams/propose", h.HandlePropose)
}

// CloneRequest 从模板克隆 Hat
type CloneRequest struct {
	Suffix    string `json:"suffix,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	FlowOrder *int   `json:"flow_order,omitempty"`
}

// ProposeRequest 为目标生成团队
type ProposeRequest struct {
	Goal string `json:"goal"`
	Save bool   `json:"save,omitempty"`
}

// ProposeResponse 团队提案
type ProposeResponse struct {
	TeamID string     `json:"team_id"`
	Hats   []*hat.Hat `json:"hats"`
	Saved  bool       `json:"saved"`
}

// =============================================================================
// 🎯 Hat CRUD
// =============================================================================

// HandleList 列出 Hat，?template=true 只列模板
func (h *HatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		list []*hat.Hat
		err  error
	)
	if r.URL.Query().Get("template") == "true" {
		list, err = hat.ListTemplates(r.Context(), h.hats)
	} else {
		list, err = h.hats.List(r.Context())
	}
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "list hats").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, list)
}

// HandleGet 返回单个 Hat
func (h *HatHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := h.hats.Get(r.Context(), id)
	if err != nil {
		WriteError(w, hatLookupError(id, err), h.logger)
		return
	}
	WriteSuccess(w, found)
}

// HandlePut 创建或替换 Hat，路径中的 ID 优先
func (h *HatHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var body hat.Hat
	if err := DecodeJSONBody(w, r, &body, h.logger); err != nil {
		return
	}
	body.ID = r.PathValue("id")
	hat.Normalize(&body)

	if err := h.hats.Put(r.Context(), &body); err != nil {
		WriteError(w, storeError("save hat", err), h.logger)
		return
	}
	WriteSuccess(w, &body)
}

// HandleDelete 删除 Hat
func (h *HatHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.hats.Delete(r.Context(), id); err != nil {
		WriteError(w, hatLookupError(id, err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// 📐 模板
// =============================================================================

// HandleRegisterTemplate 把已有 Hat 登记为模板
func (h *HatHandler) HandleRegisterTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	src, err := h.hats.Get(r.Context(), id)
	if err != nil {
		WriteError(w, hatLookupError(id, err), h.logger)
		return
	}
	tmpl, err := hat.RegisterTemplate(r.Context(), h.hats, src)
	if err != nil {
		WriteError(w, storeError("register template", err), h.logger)
		return
	}
	WriteSuccess(w, tmpl)
}

// HandleClone 从模板克隆新 Hat
func (h *HatHandler) HandleClone(w http.ResponseWriter, r *http.Request) {
	var req CloneRequest
	if r.ContentLength != 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}
	id := r.PathValue("id")
	clone, err := hat.CloneTemplate(r.Context(), h.hats, id, hat.CloneOptions{
		Suffix:    req.Suffix,
		TeamID:    req.TeamID,
		FlowOrder: req.FlowOrder,
	})
	if err != nil {
		if errors.Is(err, hat.ErrNotFound) {
			WriteError(w, hatLookupError(id, err), h.logger)
			return
		}
		WriteError(w, storeError("clone template", err), h.logger)
		return
	}
	WriteSuccess(w, clone)
}

// HandleClones 列出由某模板克隆出的 Hat
func (h *HatHandler) HandleClones(w http.ResponseWriter, r *http.Request) {
	list, err := hat.FindByBase(r.Context(), h.hats, r.PathValue("id"))
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "list clones").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, list)
}

// =============================================================================
// 🧠 记忆
// =============================================================================

// HandleMemories 查询 Hat 的记忆，q 为空时返回最近的 k 条
func (h *HatHandler) HandleMemories(w http.ResponseWriter, r *http.Request) {
	k := 10
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, types.NewInvalidRequestError("k must be a positive integer"), h.logger)
			return
		}
		k = n
	}
	matches, err := h.memory.Query(r.Context(), r.PathValue("id"), r.URL.Query().Get("q"), k)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "query memories").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, matches)
}

// HandleClearMemories 清空 Hat 的记忆
func (h *HatHandler) HandleClearMemories(w http.ResponseWriter, r *http.Request) {
	if err := h.memory.Clear(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "clear memories").WithCause(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// 👥 团队
// =============================================================================

// HandleTeam 按 flow_order 列出团队成员
func (h *HatHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	team := r.PathValue("team")
	members, err := h.hats.ListByTeam(r.Context(), team)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "list team").WithCause(err), h.logger)
		return
	}
	if len(members) == 0 {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrTeamNotFound, "no active hats in team "+team, h.logger)
		return
	}
	WriteSuccess(w, members)
}

// HandlePropose 让模型为目标设计团队，save 为 true 时写入存储
func (h *HatHandler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	if h.responder == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "team proposals need a model endpoint", h.logger)
		return
	}
	var req ProposeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	teamID, members, err := teamflow.ProposeTeam(r.Context(), h.responder, req.Goal, h.model, h.now())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp := ProposeResponse{TeamID: teamID, Hats: members}
	if req.Save {
		for _, m := range members {
			if err := h.hats.Put(r.Context(), m); err != nil {
				WriteError(w, storeError("save proposed hat", err), h.logger)
				return
			}
		}
		resp.Saved = true
		h.logger.Info("proposed team saved", zap.String("team_id", teamID), zap.Int("hats", len(members)))
	}
	WriteSuccess(w, resp)
}

func storeError(action string, err error) error {
	if errors.Is(err, hat.ErrInvalidInput) {
		return types.NewInvalidRequestError(err.Error()).WithCause(err)
	}
	return types.NewError(types.ErrInternalError, action).WithCause(err)
}
