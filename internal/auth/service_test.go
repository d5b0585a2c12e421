package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/user"
)

func newTestService(t *testing.T) (*Service, *user.MemoryRepository, TokenService) {
	t.Helper()

	tokenService, err := NewJWTService([]byte("test-secret"))
	if err != nil {
		t.Fatalf("NewJWTService error: %v", err)
	}

	repo := user.NewMemoryRepository()
	svc := NewService(repo, tokenService, logging.NewLogger(true), 24*time.Hour)
	return svc, repo, tokenService
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	svc, _, tokenService := newTestService(t)

	result, err := svc.Register(context.Background(), "new@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if result.User.Email != "new@example.com" {
		t.Fatalf("email mismatch: got %q", result.User.Email)
	}
	if !result.User.IsActive {
		t.Fatalf("expected new user to be active")
	}
	if result.User.PasswordHash == "secret123" {
		t.Fatalf("password stored in plaintext")
	}

	// Signup doubles as a first login: the returned token must verify and
	// carry the new user's identity.
	claims, err := tokenService.VerifyToken(result.Token)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if claims.UserID != result.User.ID.String() {
		t.Fatalf("token subject mismatch: got %q want %q", claims.UserID, result.User.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "dup@example.com", "secret123"); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	_, err := svc.Register(context.Background(), "dup@example.com", "different-pass")
	if !errors.Is(err, user.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"empty email", "", "secret123", ErrEmailRequired},
		{"no at sign", "invalid-email.com", "secret123", ErrInvalidEmailFormat},
		{"no dot", "invalid@email", "secret123", ErrInvalidEmailFormat},
		{"overlong email", strings.Repeat("a", 250) + "@x.com", "secret123", ErrInvalidEmailFormat},
		{"empty password", "user@example.com", "", ErrPasswordRequired},
		{"short password", "user@example.com", "12345", ErrPasswordTooShort},
		{"overlong password", "user@example.com", strings.Repeat("p", 129), ErrPasswordTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegister_PasswordBoundsCountRunes(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	// Six two-byte characters satisfy the six-character minimum.
	if _, err := svc.Register(context.Background(), "runes@example.com", "пароль"); err != nil {
		t.Fatalf("Register with 6-character multibyte password: %v", err)
	}

	if _, err := svc.Register(context.Background(), "runes2@example.com", "парол"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort for 5 characters, got %v", err)
	}

	if _, err := svc.Register(context.Background(), "runes3@example.com", strings.Repeat("ö", 128)); err != nil {
		t.Fatalf("Register with 128-character multibyte password: %v", err)
	}

	if _, err := svc.Register(context.Background(), "runes4@example.com", strings.Repeat("ö", 129)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong for 129 characters, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	svc, _, tokenService := newTestService(t)

	registered, err := svc.Register(context.Background(), "login@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	result, err := svc.Login(context.Background(), "login@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Fatalf("user id mismatch: got %v want %v", result.User.ID, registered.User.ID)
	}

	claims, err := tokenService.VerifyToken(result.Token)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if claims.Email != "login@example.com" {
		t.Fatalf("token email mismatch: got %q", claims.Email)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)

	registered, err := svc.Register(context.Background(), "victim@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := repo.SetActive(context.Background(), registered.User.ID, false); err != nil {
		t.Fatalf("SetActive error: %v", err)
	}

	// Unknown email, wrong password and inactive account must be
	// indistinguishable to the caller.
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "secret123"},
		{"wrong password", "victim@example.com", "not-the-password"},
		{"inactive account", "victim@example.com", "secret123"},
		{"empty email", "", "secret123"},
		{"empty password", "victim@example.com", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("got %v, want ErrInvalidCredentials", err)
			}
		})
	}
}
