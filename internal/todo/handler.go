package todo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"taskbox/internal/auth"
	"taskbox/internal/web"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type todoRequest struct {
	TodoID      string `json:"todoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

// Create handles POST /api/v1/todo/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	var req todoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	due, errs := validateTodoInput(req.Title, req.Description, req.Priority, req.Status, req.DueDate, time.Now().UTC())
	if len(errs) > 0 {
		web.ValidationFailed(w, "add_todo_zod_validation_error", errs)
		return
	}

	created, err := h.repo.Create(r.Context(), Todo{
		UserID:      profile.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     due,
	})
	if err != nil {
		internal(w, err)
		return
	}

	web.Success(w, http.StatusCreated, "Todo created successfully.", created)
}

// List handles GET /api/v1/todo/todos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != StatusPending && status != StatusCompleted {
		web.Error(w, http.StatusBadRequest, "Invalid status filter.")
		return
	}

	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", 10)

	result, err := h.repo.ListByUser(r.Context(), profile.ID, status, page, limit)
	if err != nil {
		internal(w, err)
		return
	}

	web.Success(w, http.StatusOK, "All todos.", result)
}

// Delete handles DELETE /api/v1/todo/delete/{todoId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	todoID := r.PathValue("todoId")
	if todoID == "" {
		web.Error(w, http.StatusBadRequest, "Missing todo ID.")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), todoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			web.Error(w, http.StatusNotFound, "Todo not found.")
			return
		}
		internal(w, err)
		return
	}
	if existing.UserID != profile.ID {
		web.Error(w, http.StatusForbidden, "You are not allowed to delete.")
		return
	}

	if err := h.repo.Delete(r.Context(), todoID); err != nil {
		internal(w, err)
		return
	}

	web.Success(w, http.StatusOK, "Todo deleted successfully.", nil)
}

// Update handles PUT /api/v1/todo/update.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	var req todoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TodoID == "" {
		web.Error(w, http.StatusBadRequest, "Missing todo ID.")
		return
	}

	due, errs := validateTodoInput(req.Title, req.Description, req.Priority, req.Status, req.DueDate, time.Now().UTC())
	if len(errs) > 0 {
		web.ValidationFailed(w, "add_todo_zod_validation_error", errs)
		return
	}

	existing, err := h.repo.GetByID(r.Context(), req.TodoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			web.Error(w, http.StatusNotFound, "Todo not found.")
			return
		}
		internal(w, err)
		return
	}
	if existing.UserID != profile.ID {
		web.Error(w, http.StatusForbidden, "You are not allowed to update.")
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.Priority = req.Priority
	existing.Status = req.Status
	existing.DueDate = due

	if err := h.repo.Update(r.Context(), existing); err != nil {
		internal(w, err)
		return
	}

	web.Success(w, http.StatusOK, "Todo updated successfully", existing)
}

// UpdateStatus handles PATCH /api/v1/todo/update/{todoId}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ProfileFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Unauthorized. No user found.")
		return
	}

	todoID := r.PathValue("todoId")
	if todoID == "" {
		web.Error(w, http.StatusBadRequest, "Missing todo ID.")
		return
	}

	var req todoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != StatusPending && req.Status != StatusCompleted {
		web.Error(w, http.StatusBadRequest, "Status must be either pending or completed.")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), todoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			web.Error(w, http.StatusNotFound, "Todo not found.")
			return
		}
		internal(w, err)
		return
	}
	if existing.UserID != profile.ID {
		web.Error(w, http.StatusForbidden, "You are not allowed to update.")
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), todoID, req.Status); err != nil {
		internal(w, err)
		return
	}

	web.Success(w, http.StatusOK, "Status updated.", nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		web.Error(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func internal(w http.ResponseWriter, err error) {
	sentry.CaptureException(err)
	web.Error(w, http.StatusInternalServerError, "Internal server error.")
}
