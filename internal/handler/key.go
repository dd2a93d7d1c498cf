package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/taskerhq/tasker/internal/service"
	"github.com/taskerhq/tasker/internal/store"
)

// KeyHandler serves API key management. These endpoints run behind user
// authentication; the keys themselves authenticate machine clients.
type KeyHandler struct {
	authSvc *service.AuthService
}

// NewKeyHandler creates a KeyHandler.
func NewKeyHandler(authSvc *service.AuthService) *KeyHandler {
	return &KeyHandler{authSvc: authSvc}
}

type createKeyRequest struct {
	Name string `json:"name"`
}

// createKeyResponse includes the plaintext key (shown once only).
type createKeyResponse struct {
	ID        int64     `json:"id"`
	Key       string    `json:"api_key"` // Plaintext, shown ONCE.
	KeyPrefix string    `json:"key_prefix"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns all API keys without exposing key material.
// GET /api/v1/keys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.authSvc.ListAPIKeys(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// Create generates a new API key and returns the plaintext exactly once.
// POST /api/v1/keys
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Name) > 100 {
		writeError(w, http.StatusBadRequest, "Name must be at most 100 characters")
		return
	}

	key, plaintext, err := h.authSvc.CreateAPIKey(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	writeJSON(w, http.StatusCreated, createKeyResponse{
		ID:        key.ID,
		Key:       plaintext,
		KeyPrefix: key.KeyPrefix,
		Name:      key.Name,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	})
}

// Toggle flips a key's active flag.
// PATCH /api/v1/keys/{keyID}
func (h *KeyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "keyID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid key ID")
		return
	}

	key, err := h.authSvc.ToggleAPIKey(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to toggle API key")
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Delete hard-removes a key.
// DELETE /api/v1/keys/{keyID}
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "keyID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid key ID")
		return
	}

	if err := h.authSvc.DeleteAPIKey(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "API key deleted",
	})
}
