package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkriz/todo-api/internal/httputil"
	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/ratelimit"
	"github.com/dkriz/todo-api/internal/user"
)

// stubLimiter scripts the rate limiter's answers.
type stubLimiter struct {
	exceeded  bool
	checkErr  error
	recordErr error
}

func (s *stubLimiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	return s.exceeded, s.checkErr
}

func (s *stubLimiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	return s.recordErr
}

func newAuthHandler(t *testing.T, limiter ratelimit.Limiter) *Handler {
	t.Helper()

	tokenService, err := NewJWTService([]byte("test-secret"))
	if err != nil {
		t.Fatalf("NewJWTService error: %v", err)
	}

	logger := logging.NewLogger(true)
	service := NewService(user.NewMemoryRepository(), tokenService, logger, time.Hour)
	return NewHandler(service, limiter, logger, false, time.Hour)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSignup_RateLimitFailsOpen(t *testing.T) {
	t.Parallel()

	// An unreachable limiter must not take auth down.
	h := newAuthHandler(t, &stubLimiter{
		checkErr:  errors.New("redis: connection refused"),
		recordErr: errors.New("redis: connection refused"),
	})

	rec := postJSON(t, h.Signup, "/auth/signup", SignupRequest{
		Email:    "open@example.com",
		Password: "secret123",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected a session token despite the limiter outage")
	}
}

func TestLogin_RateLimitFailsOpen(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, &stubLimiter{
		checkErr: errors.New("redis: connection refused"),
	})

	if rec := postJSON(t, h.Signup, "/auth/signup", SignupRequest{
		Email:    "open2@example.com",
		Password: "secret123",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "open2@example.com",
		Password: "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestAuthEndpoints_RateLimitExceeded(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, &stubLimiter{exceeded: true})

	endpoints := []struct {
		name    string
		handler http.HandlerFunc
		path    string
	}{
		{"signup", h.Signup, "/auth/signup"},
		{"login", h.Login, "/auth/login"},
	}

	for _, ep := range endpoints {
		t.Run(ep.name, func(t *testing.T) {
			rec := postJSON(t, ep.handler, ep.path, map[string]string{
				"email":    "limited@example.com",
				"password": "secret123",
			})

			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusTooManyRequests, rec.Body.String())
			}

			var body httputil.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Code != httputil.CodeTooManyRequests {
				t.Fatalf("error code = %q, want %q", body.Code, httputil.CodeTooManyRequests)
			}
		})
	}
}
