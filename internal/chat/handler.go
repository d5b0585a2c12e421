package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dkriz/todo-api/internal/auth"
	"github.com/dkriz/todo-api/internal/httputil"
	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/task"
)

// Handler serves the stateless chat endpoint. Every message is parsed,
// executed against the task facade and answered in one round trip; nothing is
// remembered between calls.
type Handler struct {
	tasks  *task.Service
	logger *logging.Logger
}

func NewHandler(tasks *task.Service, logger *logging.Logger) *Handler {
	return &Handler{tasks: tasks, logger: logger}
}

// Request is the POST /chat request body.
type Request struct {
	Message string `json:"message"`
}

// ToolCall records which task operation a message triggered, mirroring the
// shape the frontend chat widget renders.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the POST /chat response body.
type Response struct {
	Response   string         `json:"response"`
	ToolCalls  []ToolCall     `json:"tool_calls"`
	Operations map[string]any `json:"operations"`
}

// Chat handles a free-text task command
// @Summary      Chat with the task assistant
// @Description  Classifies the message into a task operation, executes it, and answers in plain text. The endpoint holds no conversational state.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body Request true "User message"
// @Security     BearerAuth
// @Success      200 {object} Response
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	cmd := Parse(req.Message)
	logger.Info("chat command parsed", "intent", cmd.Intent.String(), "user_id", userID)

	resp := h.execute(r.Context(), userID, cmd)
	httputil.RespondJSON(w, resp, http.StatusOK)
}

func (h *Handler) execute(ctx context.Context, userID uuid.UUID, cmd Command) Response {
	resp := Response{
		ToolCalls:  []ToolCall{},
		Operations: map[string]any{},
	}

	switch cmd.Intent {
	case IntentAddTask:
		h.addTask(ctx, userID, cmd, &resp)
	case IntentListTasks:
		h.listTasks(ctx, userID, &resp)
	case IntentCompleteTask:
		h.completeTask(ctx, userID, cmd, &resp)
	case IntentDeleteTask:
		h.deleteTask(ctx, userID, cmd, &resp)
	default:
		resp.Response = "I can help you manage your tasks. Try 'add a task to buy milk', 'show my tasks', 'complete task 1' or 'delete task 2'."
	}

	return resp
}

func (h *Handler) addTask(ctx context.Context, userID uuid.UUID, cmd Command, resp *Response) {
	if cmd.Title == "" {
		resp.Response = "I need a title for the new task. Please specify what task you'd like to add."
		resp.Operations["add_task"] = map[string]any{"status": "error", "message": "No task title found in message"}
		return
	}

	description := "Added via chatbot"
	t, err := h.tasks.Create(ctx, userID, task.CreateInput{
		Title:       cmd.Title,
		Description: &description,
	})
	if err != nil {
		resp.Response = chatErrorMessage(err)
		resp.Operations["add_task"] = map[string]any{"status": "error", "message": err.Error()}
		return
	}

	resp.ToolCalls = append(resp.ToolCalls, ToolCall{
		Name:      "add_task",
		Arguments: map[string]any{"title": t.Title},
	})
	resp.Operations["add_task"] = map[string]any{"status": "success", "task_id": t.ID, "title": t.Title}
	resp.Response = fmt.Sprintf("I've added the task '%s' to your list (ID: %s).", t.Title, t.ID)
}

func (h *Handler) listTasks(ctx context.Context, userID uuid.UUID, resp *Response) {
	tasks, _, err := h.tasks.List(ctx, userID, task.ListFilter{})
	if err != nil {
		resp.Response = chatErrorMessage(err)
		resp.Operations["list_tasks"] = map[string]any{"status": "error", "message": err.Error()}
		return
	}

	resp.ToolCalls = append(resp.ToolCalls, ToolCall{
		Name:      "list_tasks",
		Arguments: map[string]any{"count": len(tasks)},
	})

	if len(tasks) == 0 {
		resp.Response = "You have no tasks."
		resp.Operations["list_tasks"] = map[string]any{"status": "success", "count": 0, "tasks": []any{}}
		return
	}

	lines := make([]string, 0, len(tasks))
	summaries := make([]map[string]any, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		status := "pending"
		if t.Completed {
			status = "completed"
		}
		lines = append(lines, fmt.Sprintf("- #%d: %s (%s)", i+1, t.Title, status))
		summaries = append(summaries, map[string]any{"id": t.ID, "title": t.Title, "completed": t.Completed})
	}

	resp.Response = fmt.Sprintf("Here are your %d tasks:\n%s", len(tasks), strings.Join(lines, "\n"))
	resp.Operations["list_tasks"] = map[string]any{"status": "success", "count": len(tasks), "tasks": summaries}
}

func (h *Handler) completeTask(ctx context.Context, userID uuid.UUID, cmd Command, resp *Response) {
	taskID, ok := h.resolveTaskRef(ctx, userID, cmd.TaskRef)
	if !ok {
		resp.Response = "Please specify which task you'd like to complete (e.g., 'complete task 1')."
		resp.Operations["complete_task"] = map[string]any{"status": "error", "message": "No task ID found in message"}
		return
	}

	t, err := h.tasks.ToggleCompleted(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			resp.Response = fmt.Sprintf("Task %s not found.", cmd.TaskRef)
			resp.Operations["complete_task"] = map[string]any{"status": "error", "message": "Task not found"}
			return
		}
		resp.Response = chatErrorMessage(err)
		resp.Operations["complete_task"] = map[string]any{"status": "error", "message": err.Error()}
		return
	}

	resp.ToolCalls = append(resp.ToolCalls, ToolCall{
		Name:      "complete_task",
		Arguments: map[string]any{"task_id": t.ID},
	})
	resp.Operations["complete_task"] = map[string]any{
		"status":    "success",
		"task_id":   t.ID,
		"title":     t.Title,
		"completed": t.Completed,
	}

	if t.Completed {
		resp.Response = fmt.Sprintf("I've marked task '%s' as completed.", t.Title)
	} else {
		resp.Response = fmt.Sprintf("I've marked task '%s' as pending again.", t.Title)
	}
}

func (h *Handler) deleteTask(ctx context.Context, userID uuid.UUID, cmd Command, resp *Response) {
	taskID, ok := h.resolveTaskRef(ctx, userID, cmd.TaskRef)
	if !ok {
		resp.Response = "Please specify which task you'd like to delete (e.g., 'delete task 2')."
		resp.Operations["delete_task"] = map[string]any{"status": "error", "message": "No task ID found in message"}
		return
	}

	// Chat deletes are confirmed implicitly; the two-phase prompt belongs to
	// the REST/UI flow where a confirmation round trip is possible.
	result, err := h.tasks.Delete(ctx, userID, taskID, true)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			resp.Response = fmt.Sprintf("Task %s not found.", cmd.TaskRef)
			resp.Operations["delete_task"] = map[string]any{"status": "error", "message": "Task not found"}
			return
		}
		resp.Response = chatErrorMessage(err)
		resp.Operations["delete_task"] = map[string]any{"status": "error", "message": err.Error()}
		return
	}

	resp.ToolCalls = append(resp.ToolCalls, ToolCall{
		Name:      "delete_task",
		Arguments: map[string]any{"task_id": taskID},
	})
	resp.Operations["delete_task"] = map[string]any{"status": "success", "task_id": taskID}
	resp.Response = result.Message
}

// resolveTaskRef turns a parsed task reference into a task id. A full id is
// used as-is; a small number is treated as a 1-based position in the user's
// task list, matching how the chat UI numbers them.
func (h *Handler) resolveTaskRef(ctx context.Context, userID uuid.UUID, ref string) (uuid.UUID, bool) {
	if ref == "" {
		return uuid.Nil, false
	}

	if id, err := uuid.Parse(ref); err == nil {
		return id, true
	}

	pos, err := strconv.Atoi(ref)
	if err != nil || pos < 1 {
		return uuid.Nil, false
	}

	tasks, _, err := h.tasks.List(ctx, userID, task.ListFilter{})
	if err != nil || pos > len(tasks) {
		return uuid.Nil, false
	}

	return tasks[pos-1].ID, true
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, task.ErrTitleRequired),
		errors.Is(err, task.ErrTitleTooLong):
		return err.Error()
	default:
		return "Sorry, something went wrong handling that request."
	}
}
