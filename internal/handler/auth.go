package handler

import (
	"net/http"

	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/server/middleware"
	"github.com/taskerhq/tasker/internal/service"
)

// AuthHandler serves the legacy anonymous-session endpoints. They predate
// user accounts and survive for clients that never migrated.
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// authStatusResponse is the payload for VerifyAuth.
type authStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	SessionID     string `json:"session_id"`
	IssuedAt      int64  `json:"issued_at"`
	ExpiresAt     int64  `json:"expires_at"`
}

// SimpleAuth mints a fresh anonymous session and returns its bearer token.
// POST /api/v1/auth/simple
func (h *AuthHandler) SimpleAuth(w http.ResponseWriter, r *http.Request) {
	_, token, err := h.authSvc.IssueSessionToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create authentication token")
		return
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.authSvc.TokenTTL().Seconds()),
	})
}

// VerifyAuth reports the validity of the presented session token. Runs
// behind RequireSession, so reaching the handler means the token checked out.
// GET /api/v1/auth/verify
func (h *AuthHandler) VerifyAuth(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	writeJSON(w, http.StatusOK, authStatusResponse{
		Authenticated: true,
		SessionID:     session.SessionID,
		IssuedAt:      session.IssuedAt.Unix(),
		ExpiresAt:     session.ExpiresAt.Unix(),
	})
}
