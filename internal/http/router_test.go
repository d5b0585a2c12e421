package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkriz/todo-api/internal/auth"
	"github.com/dkriz/todo-api/internal/chat"
	"github.com/dkriz/todo-api/internal/config"
	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/ratelimit"
	"github.com/dkriz/todo-api/internal/task"
	"github.com/dkriz/todo-api/internal/user"
)

// newTestServer wires the full stack on memory backends, the way the memory
// storage backend runs in production.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Env:  "prod", // keep swagger off
			Port: "0",
		},
		Auth: config.AuthConfig{
			TokenBackend:  config.TokenBackendJWT,
			TokenSecret:   []byte("test-secret"),
			TokenDuration: time.Hour,
		},
	}

	logger := logging.NewLogger(true)
	userRepo := user.NewMemoryRepository()
	taskRepo := task.NewMemoryRepository()

	tokenService, err := auth.NewJWTService(cfg.Auth.TokenSecret)
	if err != nil {
		t.Fatalf("NewJWTService error: %v", err)
	}

	authService := auth.NewService(userRepo, tokenService, logger, cfg.Auth.TokenDuration)
	taskService := task.NewService(taskRepo, logger)

	authHandler := auth.NewHandler(authService, ratelimit.NewNoopLimiter(), logger, false, cfg.Auth.TokenDuration)
	authMiddleware := auth.NewMiddleware(tokenService, userRepo)
	taskHandler := task.NewHandler(taskService, logger)
	chatHandler := chat.NewHandler(taskService, logger)

	router := NewRouter(cfg, authHandler, authMiddleware, taskHandler, chatHandler, logger)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response of %s %s: %v", method, url, err)
	}
	return resp, decoded
}

func signup(t *testing.T, client *http.Client, baseURL, email string) string {
	t.Helper()

	resp, body := doJSON(t, client, http.MethodPost, baseURL+"/auth/signup", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, body: %v", resp.StatusCode, body)
	}

	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("signup returned no token: %v", body)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	resp, body := doJSON(t, server.Client(), http.MethodGet, server.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if body["status"] != "api is running" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := server.Client()

	for _, path := range []string{"/tasks", "/tasks/stats"} {
		resp, _ := doJSON(t, client, http.MethodGet, server.URL+path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusUnauthorized)
		}
	}

	resp, _ := doJSON(t, client, http.MethodPost, server.URL+"/chat", "", map[string]string{"message": "show my tasks"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("POST /chat status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSignupLoginAndTaskFlow(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := server.Client()

	token := signup(t, client, server.URL, "flow@example.com")

	// Duplicate signup conflicts.
	resp, body := doJSON(t, client, http.MethodPost, server.URL+"/auth/signup", "", map[string]string{
		"email":    "flow@example.com",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, body: %v", resp.StatusCode, body)
	}

	// Login with the same credentials works too.
	resp, body = doJSON(t, client, http.MethodPost, server.URL+"/auth/login", "", map[string]string{
		"email":    "flow@example.com",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body: %v", resp.StatusCode, body)
	}

	// Create a task.
	resp, body = doJSON(t, client, http.MethodPost, server.URL+"/tasks", token, map[string]string{
		"title":    "write report",
		"priority": "high",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task status = %d, body: %v", resp.StatusCode, body)
	}
	taskID, _ := body["id"].(string)
	if taskID == "" {
		t.Fatalf("create task returned no id: %v", body)
	}

	// It shows up in the listing.
	resp, body = doJSON(t, client, http.MethodGet, server.URL+"/tasks", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, body: %v", resp.StatusCode, body)
	}
	tasks, _ := body["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %v", body)
	}

	// Unconfirmed delete only prompts.
	resp, body = doJSON(t, client, http.MethodDelete, server.URL+"/tasks/"+taskID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unconfirmed delete status = %d, body: %v", resp.StatusCode, body)
	}
	if body["requires_confirmation"] != true {
		t.Fatalf("expected confirmation prompt, got %v", body)
	}
	if body["message"] != "Are you sure you want to delete 'write report'?" {
		t.Fatalf("unexpected prompt: %v", body["message"])
	}

	// Confirmed delete removes it.
	resp, body = doJSON(t, client, http.MethodDelete, server.URL+"/tasks/"+taskID+"?confirmed=true", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmed delete status = %d, body: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("expected deletion, got %v", body)
	}

	resp, body = doJSON(t, client, http.MethodGet, server.URL+"/tasks/"+taskID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted task status = %d, body: %v", resp.StatusCode, body)
	}
}

func TestTaskIsolationBetweenUsers(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := server.Client()

	aliceToken := signup(t, client, server.URL, "alice@example.com")
	bobToken := signup(t, client, server.URL, "bob@example.com")

	resp, body := doJSON(t, client, http.MethodPost, server.URL+"/tasks", aliceToken, map[string]string{
		"title": "alice's secret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task status = %d, body: %v", resp.StatusCode, body)
	}
	taskID, _ := body["id"].(string)

	// Bob cannot see, modify or delete Alice's task; it reads as not-found.
	resp, _ = doJSON(t, client, http.MethodGet, server.URL+"/tasks/"+taskID, bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user get status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp, _ = doJSON(t, client, http.MethodPut, server.URL+"/tasks/"+taskID, bobToken, map[string]string{"title": "hijacked"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user update status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp, _ = doJSON(t, client, http.MethodDelete, server.URL+"/tasks/"+taskID+"?confirmed=true", bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp, body = doJSON(t, client, http.MethodGet, server.URL+"/tasks", bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if tasks, _ := body["tasks"].([]any); len(tasks) != 0 {
		t.Fatalf("bob sees foreign tasks: %v", body)
	}

	// Alice's task is untouched.
	resp, body = doJSON(t, client, http.MethodGet, server.URL+"/tasks/"+taskID, aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner get status = %d", resp.StatusCode)
	}
	if body["title"] != "alice's secret" {
		t.Fatalf("task was modified: %v", body)
	}
}

func TestChatThroughRouter(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := server.Client()

	token := signup(t, client, server.URL, "chatter@example.com")

	resp, body := doJSON(t, client, http.MethodPost, server.URL+"/chat", token, map[string]string{
		"message": `add a task "buy milk"`,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, body: %v", resp.StatusCode, body)
	}
	reply, _ := body["response"].(string)
	if reply == "" {
		t.Fatalf("chat returned no reply: %v", body)
	}

	resp, body = doJSON(t, client, http.MethodGet, server.URL+"/tasks", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	tasks, _ := body["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("expected the chat-created task, got %v", body)
	}
	first, _ := tasks[0].(map[string]any)
	if first["title"] != "buy milk" {
		t.Fatalf("unexpected task: %v", first)
	}
}

func TestUnknownTaskIDReadsAsNotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := server.Client()

	token := signup(t, client, server.URL, "lookup@example.com")

	for _, id := range []string{"not-a-uuid", "00000000-0000-0000-0000-000000000001"} {
		resp, body := doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/tasks/%s", server.URL, id), token, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET /tasks/%s status = %d, want %d; body: %v", id, resp.StatusCode, http.StatusNotFound, body)
		}
	}
}
