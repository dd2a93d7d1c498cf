package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/server/middleware"
	"github.com/taskerhq/tasker/internal/store"
)

// CategoryHandler serves category CRUD, scoped to the authenticated user.
type CategoryHandler struct {
	store *store.Store
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(st *store.Store) *CategoryHandler {
	return &CategoryHandler{store: st}
}

type createCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// List returns the user's categories ordered by name.
// GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	categories, err := h.store.ListCategories(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Create adds a new category.
// POST /api/v1/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req createCategoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		writeError(w, http.StatusBadRequest, "Name is required and must be at most 100 characters")
		return
	}
	if req.Color != "" && !isHexColor(req.Color) {
		writeError(w, http.StatusBadRequest, "Color must be in hex format (#RRGGBB)")
		return
	}

	category := &model.Category{
		UserID: user.ID,
		Name:   req.Name,
		Color:  req.Color,
	}
	if err := h.store.CreateCategory(r.Context(), category); err != nil {
		if errors.Is(err, store.ErrDuplicateCategory) {
			writeError(w, http.StatusConflict, "Category already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// Get returns a single category.
// GET /api/v1/categories/{categoryID}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id, ok := urlID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	category, err := h.store.GetCategory(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load category")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Delete removes a category. Its tasks survive with category_id cleared.
// DELETE /api/v1/categories/{categoryID}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id, ok := urlID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	if err := h.store.DeleteCategory(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Category deleted successfully",
	})
}
