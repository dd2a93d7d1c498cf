package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/server/middleware"
	"github.com/taskerhq/tasker/internal/service"
	"github.com/taskerhq/tasker/internal/store"
)

// UserHandler serves registration, login, and profile endpoints.
type UserHandler struct {
	authSvc *service.AuthService
	store   *store.Store
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(authSvc *service.AuthService, st *store.Store) *UserHandler {
	return &UserHandler{authSvc: authSvc, store: st}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account and logs it in.
// POST /api/v1/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if msg := validateRegistration(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, token, err := h.authSvc.Register(r.Context(), service.RegisterParams{
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		FullName: strings.TrimSpace(req.FullName),
		Password: req.Password,
	})
	if err != nil {
		if conflictMessage := registrationConflict(err); conflictMessage != "" {
			writeError(w, http.StatusConflict, conflictMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, model.AuthResponse{
		Message:     "User registered successfully",
		User:        user,
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.authSvc.TokenTTL().Seconds()),
	})
}

// Login authenticates an email/password pair.
// POST /api/v1/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		writeUnauthorized(w, "Incorrect email or password")
		return
	case errors.Is(err, service.ErrInactiveUser):
		writeUnauthorized(w, "Inactive user")
		return
	default:
		writeError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	writeJSON(w, http.StatusOK, model.AuthResponse{
		Message:     "Login successful",
		User:        user,
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.authSvc.TokenTTL().Seconds()),
	})
}

// Me returns the authenticated user's profile.
// GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
}

// UpdateMe applies a partial profile update to the authenticated user.
// PUT /api/v1/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	var req updateProfileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if req.Username != nil && (len(*req.Username) < 3 || len(*req.Username) > 100) {
		writeError(w, http.StatusBadRequest, "Username must be 3-100 characters")
		return
	}

	updated, err := h.store.UpdateUser(r.Context(), user.ID, store.UserUpdate{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		if conflictMessage := registrationConflict(err); conflictMessage != "" {
			writeError(w, http.StatusConflict, conflictMessage)
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Profile update failed")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// VerifyToken validates the presented user token and echoes the profile.
// POST /api/v1/verify-token
func (h *UserHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	h.Me(w, r)
}

func validateRegistration(req registerRequest) string {
	switch {
	case !strings.Contains(req.Email, "@"):
		return "Invalid email address"
	case len(strings.TrimSpace(req.Username)) < 3 || len(req.Username) > 100:
		return "Username must be 3-100 characters"
	case len(req.Password) < 8:
		return "Password must be at least 8 characters"
	}
	return ""
}

// registrationConflict maps duplicate-identity errors to their user-facing
// messages. Returns "" for anything else.
func registrationConflict(err error) string {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return "Email already registered"
	case errors.Is(err, store.ErrDuplicateUsername):
		return "Username already taken"
	}
	return ""
}
