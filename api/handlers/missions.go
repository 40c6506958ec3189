package handlers

import (
	"net/http"
	"strconv"

	"github.com/chin3/hat-manager/mission"
	"github.com/chin3/hat-manager/types"
	"go.uber.org/zap"
)

// MissionHandler 浏览已归档的任务记录
type MissionHandler struct {
	archive mission.Archive
	logger  *zap.Logger
}

// NewMissionHandler 创建任务归档处理器
func NewMissionHandler(archive mission.Archive, logger *zap.Logger) *MissionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MissionHandler{archive: archive, logger: logger.With(zap.String("handler", "mission"))}
}

// Register 注册路由
func (h *MissionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/missions", h.HandleList)
}

// HandleList 按时间倒序列出任务，?limit= 限制条数
func (h *MissionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, types.NewInvalidRequestError("limit must be a non-negative integer"), h.logger)
			return
		}
		limit = n
	}
	records, err := h.archive.List(r.Context(), limit)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "list missions").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, records)
}
