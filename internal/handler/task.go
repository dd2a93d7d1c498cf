package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/server/middleware"
	"github.com/taskerhq/tasker/internal/store"
)

// TaskHandler serves task CRUD. Every operation is scoped to the
// authenticated user; a task belonging to someone else is a 404.
type TaskHandler struct {
	store *store.Store
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(st *store.Store) *TaskHandler {
	return &TaskHandler{store: st}
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    *int       `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CategoryID  *int64     `json:"category_id"`
}

// updateTaskRequest uses RawMessage for category_id so "set to null"
// (detach) is distinguishable from "field absent" (leave alone).
type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	IsCompleted *bool           `json:"is_completed"`
	Priority    *int            `json:"priority"`
	DueDate     *time.Time      `json:"due_date"`
	CategoryID  json.RawMessage `json:"category_id"`
}

// List returns the user's tasks, newest first.
// GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	tasks, err := h.store.ListTasks(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create adds a new task for the user.
// POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req createTaskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Title == "" || len(req.Title) > 255 {
		writeError(w, http.StatusBadRequest, "Title is required and must be at most 255 characters")
		return
	}
	if len(req.Description) > 1000 {
		writeError(w, http.StatusBadRequest, "Description must be at most 1000 characters")
		return
	}
	priority := model.PriorityMedium
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < model.PriorityHigh || priority > model.PriorityLow {
		writeError(w, http.StatusBadRequest, "Priority must be 1 (High), 2 (Medium), or 3 (Low)")
		return
	}
	if req.CategoryID != nil {
		if !h.categoryExists(r, user.ID, *req.CategoryID) {
			writeError(w, http.StatusBadRequest, "Category not found")
			return
		}
	}

	task := &model.Task{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// Get returns a single task.
// GET /api/v1/tasks/{taskID}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id, ok := urlID(r, "taskID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.store.GetTask(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update applies a partial update.
// PUT /api/v1/tasks/{taskID}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id, ok := urlID(r, "taskID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req updateTaskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Title != nil && (*req.Title == "" || len(*req.Title) > 255) {
		writeError(w, http.StatusBadRequest, "Title must be 1-255 characters")
		return
	}
	if req.Description != nil && len(*req.Description) > 1000 {
		writeError(w, http.StatusBadRequest, "Description must be at most 1000 characters")
		return
	}
	if req.Priority != nil && (*req.Priority < model.PriorityHigh || *req.Priority > model.PriorityLow) {
		writeError(w, http.StatusBadRequest, "Priority must be 1 (High), 2 (Medium), or 3 (Low)")
		return
	}

	upd := store.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if len(req.CategoryID) > 0 {
		upd.SetCategory = true
		if string(req.CategoryID) != "null" {
			var cid int64
			if err := json.Unmarshal(req.CategoryID, &cid); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid category_id")
				return
			}
			if !h.categoryExists(r, user.ID, cid) {
				writeError(w, http.StatusBadRequest, "Category not found")
				return
			}
			upd.CategoryID = &cid
		}
	}

	task, err := h.store.UpdateTask(r.Context(), user.ID, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task.
// DELETE /api/v1/tasks/{taskID}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id, ok := urlID(r, "taskID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.store.DeleteTask(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task deleted successfully",
	})
}

func (h *TaskHandler) categoryExists(r *http.Request, userID, categoryID int64) bool {
	_, err := h.store.GetCategory(r.Context(), userID, categoryID)
	return err == nil
}
