package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dkriz/todo-api/internal/auth"
	"github.com/dkriz/todo-api/internal/httputil"
	"github.com/dkriz/todo-api/internal/logging"
)

// Handler contains HTTP handlers for the task endpoints. Every route is
// mounted behind auth.Middleware.RequireAuth, so the caller's identity is
// always present in the request context.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CreateRequest is the POST /tasks request body.
type CreateRequest struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderDate *time.Time `json:"reminder_date,omitempty"`
}

// UpdateRequest is the PUT /tasks/{id} request body. Absent fields are left
// untouched.
type UpdateRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderDate *time.Time `json:"reminder_date,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
}

// StatusRequest is the PATCH /tasks/{id}/status request body. When Completed
// is omitted the status is toggled.
type StatusRequest struct {
	Completed *bool `json:"completed,omitempty"`
}

// BulkUpdateRequest is the POST /tasks/bulk-update request body.
type BulkUpdateRequest struct {
	TaskIDs []uuid.UUID   `json:"task_ids"`
	Updates UpdateRequest `json:"updates"`
}

// ListResponse is the GET /tasks response body.
type ListResponse struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// DeleteResponse is the DELETE /tasks/{id} response body.
type DeleteResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Task                 *Task  `json:"task,omitempty"`
}

// Routes mounts the task endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/stats", h.Stats)
	r.Post("/bulk-update", h.BulkUpdate)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.UpdateStatus)
	return r
}

// Create handles task creation
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        request body CreateRequest true "Task fields"
// @Security     BearerAuth
// @Success      201 {object} Task
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid create task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	t, err := h.service.Create(r.Context(), userID, CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ReminderDate: req.ReminderDate,
	})
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to create task")
		return
	}

	httputil.RespondJSON(w, t, http.StatusCreated)
}

// List handles task listing with optional status filter, pagination and sort
// @Summary      List the caller's tasks
// @Tags         tasks
// @Produce      json
// @Param        status query string false "pending or completed"
// @Param        limit query int false "Page size" default(50)
// @Param        offset query int false "Page offset" default(0)
// @Param        sort_by query string false "created_at, updated_at, title, priority or due_date"
// @Param        order query string false "asc or desc"
// @Security     BearerAuth
// @Success      200 {object} ListResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
		SortBy: r.URL.Query().Get("sort_by"),
		Order:  r.URL.Query().Get("order"),
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	tasks, total, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to list tasks")
		return
	}

	if tasks == nil {
		tasks = []Task{}
	}

	httputil.RespondJSON(w, ListResponse{
		Tasks: tasks,
		Pagination: Pagination{
			Total:   total,
			Limit:   filter.Limit,
			Offset:  filter.Offset,
			HasMore: filter.Offset+filter.Limit < total,
		},
	}, http.StatusOK)
}

// Get handles single-task retrieval
// @Summary      Get a task by id
// @Tags         tasks
// @Produce      json
// @Param        id path string true "Task id"
// @Security     BearerAuth
// @Success      200 {object} Task
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /tasks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, taskID, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, taskID)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to get task")
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// Update handles partial task updates
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task id"
// @Param        request body UpdateRequest true "Fields to update"
// @Security     BearerAuth
// @Success      200 {object} Task
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /tasks/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, taskID, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	t, err := h.service.Update(r.Context(), userID, taskID, req.toInput())
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to update task")
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// UpdateStatus handles completion toggling/setting
// @Summary      Set or toggle task completion
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task id"
// @Param        request body StatusRequest true "Completion flag; omit to toggle"
// @Security     BearerAuth
// @Success      200 {object} Task
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /tasks/{id}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, taskID, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid status request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	var t *Task
	var err error
	if req.Completed != nil {
		t, err = h.service.SetCompleted(r.Context(), userID, taskID, *req.Completed)
	} else {
		t, err = h.service.ToggleCompleted(r.Context(), userID, taskID)
	}
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to update task status")
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// Delete handles the two-phase delete protocol
// @Summary      Delete a task
// @Description  Without confirmed=true the call returns the task summary and a confirmation prompt; the task is removed only when the query parameter confirmed=true is present.
// @Tags         tasks
// @Produce      json
// @Param        id path string true "Task id"
// @Param        confirmed query bool false "Set true to perform the deletion"
// @Security     BearerAuth
// @Success      200 {object} DeleteResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, taskID, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}

	confirmed := r.URL.Query().Get("confirmed") == "true"

	result, err := h.service.Delete(r.Context(), userID, taskID, confirmed)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to delete task")
		return
	}

	httputil.RespondJSON(w, DeleteResponse{
		Success:              result.Deleted,
		Message:              result.Message,
		RequiresConfirmation: result.RequiresConfirmation,
		Task:                 result.Task,
	}, http.StatusOK)
}

// Stats handles aggregate counts
// @Summary      Task statistics for the caller
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Stats
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /tasks/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to load task stats")
		return
	}

	httputil.RespondJSON(w, stats, http.StatusOK)
}

// BulkUpdate handles applying one partial update to many tasks
// @Summary      Bulk-update tasks
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        request body BulkUpdateRequest true "Task ids plus shared update"
// @Security     BearerAuth
// @Success      200 {object} BulkUpdateResult
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /tasks/bulk-update [post]
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid bulk update request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.BulkUpdate(r.Context(), userID, req.TaskIDs, req.Updates.toInput())
	if err != nil {
		h.respondServiceError(w, logger, err, "failed to bulk update tasks")
		return
	}

	httputil.RespondJSON(w, result, http.StatusOK)
}

func (req *UpdateRequest) toInput() UpdateInput {
	return UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ReminderDate: req.ReminderDate,
		Completed:    req.Completed,
	}
}

// callerAndTaskID resolves the authenticated user and the {id} path param,
// writing the error response itself when either is missing.
func (h *Handler) callerAndTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// An unparseable id cannot match any task; report not-found so the
		// response shape matches ownership mismatches.
		httputil.RespondErrorWithCode(w, "task not found", httputil.CodeTaskNotFound, http.StatusNotFound)
		return uuid.Nil, uuid.Nil, false
	}

	return userID, taskID, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, logger *logging.Logger, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "task not found", httputil.CodeTaskNotFound, http.StatusNotFound)
	case errors.Is(err, ErrTitleRequired):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeTitleRequired, http.StatusBadRequest)
	case errors.Is(err, ErrTitleTooLong):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeTitleTooLong, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidPriority):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidPriority, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidStatus):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidStatus, http.StatusBadRequest)
	case errors.Is(err, ErrNoFields):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNoUpdateFields, http.StatusBadRequest)
	default:
		logger.Error(internalMsg, "error", err.Error())
		httputil.RespondErrorWithCode(w, internalMsg, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
