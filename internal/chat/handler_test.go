package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dkriz/todo-api/internal/auth"
	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/task"
)

func newTestHandler(t *testing.T) (*Handler, *task.Service, uuid.UUID) {
	t.Helper()
	svc := task.NewService(task.NewMemoryRepository(), logging.NewLogger(true))
	return NewHandler(svc, logging.NewLogger(true)), svc, uuid.New()
}

func chatRequest(t *testing.T, h *Handler, userID uuid.UUID, message string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	body, err := json.Marshal(Request{Message: message})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.UserIDContextKey, userID)
	rec := httptest.NewRecorder()

	h.Chat(rec, req.WithContext(ctx))

	var resp Response
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestChat_AddTask(t *testing.T) {
	t.Parallel()

	h, svc, userID := newTestHandler(t)

	rec, resp := chatRequest(t, h, userID, `add a task "buy milk"`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(resp.Response, "I've added the task 'buy milk'") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "add_task" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}

	tasks, _, err := svc.List(context.Background(), userID, task.ListFilter{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "buy milk" {
		t.Fatalf("task not created as expected: %+v", tasks)
	}
	if tasks[0].Description == nil || *tasks[0].Description != "Added via chatbot" {
		t.Fatalf("expected chatbot description, got %+v", tasks[0].Description)
	}
}

func TestChat_AddTaskWithoutTitle(t *testing.T) {
	t.Parallel()

	h, _, userID := newTestHandler(t)

	_, resp := chatRequest(t, h, userID, "add a task")
	if !strings.Contains(resp.Response, "I need a title") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}
	if len(resp.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %+v", resp.ToolCalls)
	}
}

func TestChat_ListTasks(t *testing.T) {
	t.Parallel()

	h, svc, userID := newTestHandler(t)

	_, resp := chatRequest(t, h, userID, "show my tasks")
	if resp.Response != "You have no tasks." {
		t.Fatalf("unexpected reply for empty list: %q", resp.Response)
	}

	for _, title := range []string{"first", "second"} {
		if _, err := svc.Create(context.Background(), userID, task.CreateInput{Title: title}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	_, resp = chatRequest(t, h, userID, "show my tasks")
	if !strings.Contains(resp.Response, "Here are your 2 tasks:") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "#1: first (pending)") || !strings.Contains(resp.Response, "#2: second (pending)") {
		t.Fatalf("task lines missing from reply: %q", resp.Response)
	}
}

func TestChat_CompleteTaskByPosition(t *testing.T) {
	t.Parallel()

	h, svc, userID := newTestHandler(t)

	created, err := svc.Create(context.Background(), userID, task.CreateInput{Title: "flip me"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	_, resp := chatRequest(t, h, userID, "complete task 1")
	if !strings.Contains(resp.Response, "I've marked task 'flip me' as completed.") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}

	got, err := svc.Get(context.Background(), userID, created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !got.Completed {
		t.Fatalf("expected task to be completed")
	}

	// Completing again toggles it back.
	_, resp = chatRequest(t, h, userID, "complete task 1")
	if !strings.Contains(resp.Response, "pending again") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}
}

func TestChat_DeleteTaskByID(t *testing.T) {
	t.Parallel()

	h, svc, userID := newTestHandler(t)

	created, err := svc.Create(context.Background(), userID, task.CreateInput{Title: "doomed"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	_, resp := chatRequest(t, h, userID, fmt.Sprintf("delete task %s", created.ID))
	if resp.Response != "Task 'doomed' has been deleted successfully!" {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}

	if _, err := svc.Get(context.Background(), userID, created.ID); err == nil {
		t.Fatalf("expected task to be gone")
	}
}

func TestChat_DeleteMissingTask(t *testing.T) {
	t.Parallel()

	h, _, userID := newTestHandler(t)

	_, resp := chatRequest(t, h, userID, "delete task 7")
	if !strings.Contains(resp.Response, "Please specify which task") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}
}

func TestChat_UnknownIntent(t *testing.T) {
	t.Parallel()

	h, _, userID := newTestHandler(t)

	_, resp := chatRequest(t, h, userID, "how is the weather today")
	if !strings.Contains(resp.Response, "I can help you manage your tasks.") {
		t.Fatalf("unexpected reply: %q", resp.Response)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	t.Parallel()

	h, _, userID := newTestHandler(t)

	rec, _ := chatRequest(t, h, userID, "   ")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
