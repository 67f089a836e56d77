// Package handler exposes the auth session lifecycle and user administration over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rental-backoffice/backend/internal/identity/service"
	"rental-backoffice/backend/internal/platform/respond"
	"rental-backoffice/backend/internal/server/middleware"
	userdomain "rental-backoffice/backend/internal/user/domain"
)

// Handler serves the /api/v1/auth and /api/v1/users endpoints.
type Handler struct {
	auth   *service.AuthService
	cookie CookieConfig
	log    *zap.Logger
}

// NewHandler returns a Handler backed by auth.
func NewHandler(auth *service.AuthService, cookie CookieConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{auth: auth, cookie: cookie, log: log}
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *userdomain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Username: u.Username, Role: string(u.Role), Phone: u.Phone, CreatedAt: u.CreatedAt}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User        *userResponse `json:"user"`
	AccessToken string        `json:"accessToken"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

type refreshResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type logoutResponse struct {
	Success      bool `json:"success"`
	TokenRemoved bool `json:"tokenRemoved"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type meResponse struct {
	UserID string        `json:"userId"`
	Role   string        `json:"role"`
	User   *userResponse `json:"user"`
}

// Login handles POST /api/v1/auth/login. The access token goes in the body and the refresh
// token in an HttpOnly cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	res, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.cookie.set(w, res.RefreshToken, res.RefreshExpiresAt)
	respond.JSON(w, http.StatusOK, loginResponse{
		User:        toUserResponse(res.User),
		AccessToken: res.AccessToken,
		ExpiresAt:   res.AccessExpiresAt,
	})
}

// Refresh handles POST /api/v1/auth/refresh using the refresh cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.Refresh(r.Context(), refreshTokenFrom(r))
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			h.cookie.clear(w)
		}
		h.writeServiceError(w, r, err)
		return
	}
	h.cookie.set(w, res.RefreshToken, res.RefreshExpiresAt)
	respond.JSON(w, http.StatusOK, refreshResponse{AccessToken: res.AccessToken, ExpiresAt: res.AccessExpiresAt})
}

// Logout handles POST /api/v1/auth/logout. The cookie is cleared whatever the outcome.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.clear(w)
	removed, err := h.auth.Logout(r.Context(), refreshTokenFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, logoutResponse{Success: true, TokenRemoved: removed})
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Internal(w)
		return
	}
	u, err := h.auth.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, meResponse{UserID: id.UserID, Role: string(id.Role), User: toUserResponse(u)})
}

// ChangePassword handles POST /api/v1/auth/change-password. Every session of the caller is
// revoked, so the refresh cookie is cleared too.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Internal(w)
		return
	}
	var req changePasswordRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	if err := h.auth.ChangePassword(r.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.cookie.clear(w)
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreateUser handles POST /api/v1/users (landlord only).
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Internal(w)
		return
	}
	var req createUserRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	u, err := h.auth.AddUser(r.Context(), id.UserID, req.Username, req.Password, req.Role, req.Phone)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]*userResponse{"user": toUserResponse(u)})
}

// writeServiceError maps AuthService errors to the envelope. Messages are fixed strings so
// no store or token detail reaches the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.WriteError(w, http.StatusUnauthorized, respond.CodeInvalidCreds, "invalid username or password")
	case errors.Is(err, service.ErrRefreshInvalid):
		respond.Forbidden(w, "invalid or expired refresh token")
	case errors.Is(err, service.ErrUserExists):
		respond.WriteError(w, http.StatusConflict, respond.CodeConflict, "username or phone already registered")
	case errors.Is(err, service.ErrInvalidInput):
		respond.WriteError(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		respond.NotFound(w, "user not found")
	default:
		h.log.Error("auth request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respond.Internal(w)
	}
}
