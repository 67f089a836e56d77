package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"rental-backoffice/backend/internal/audit/domain"
	auditrepo "rental-backoffice/backend/internal/audit/repository"
	"rental-backoffice/backend/internal/platform/respond"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler serves GET /api/v1/audit.
type Handler struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

func NewHandler(repo auditrepo.Repository, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{repo: repo, log: log}
}

type auditLogResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// List returns audit entries newest first. Query parameters: user_id, limit (1-200, default 50), offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := intParam(q.Get("limit"), defaultPageSize)
	if !ok || limit < 1 || limit > maxPageSize {
		respond.BadRequest(w, "limit must be between 1 and 200")
		return
	}
	offset, ok := intParam(q.Get("offset"), 0)
	if !ok || offset < 0 {
		respond.BadRequest(w, "offset must be a non-negative integer")
		return
	}
	entries, err := h.repo.List(r.Context(), q.Get("user_id"), int32(limit), int32(offset))
	if err != nil {
		h.log.Error("audit: list failed", zap.Error(err))
		respond.Internal(w)
		return
	}
	out := make([]auditLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"entries": out, "limit": limit, "offset": offset})
}

func toResponse(e *domain.AuditLog) auditLogResponse {
	return auditLogResponse{ID: e.ID, UserID: e.UserID, Action: e.Action, IP: e.IP, Metadata: e.Metadata, CreatedAt: e.CreatedAt}
}

func intParam(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
