package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryRepository_CreateAndLookup(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	created, err := repo.Create(context.Background(), "user@example.com", "hash")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !created.IsActive {
		t.Fatalf("expected new user to be active")
	}

	byEmail, err := repo.GetByEmail(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("id mismatch: got %v want %v", byEmail.ID, created.ID)
	}

	byID, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if byID.Email != "user@example.com" {
		t.Fatalf("email mismatch: got %q", byID.Email)
	}
}

func TestMemoryRepository_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	if _, err := repo.Create(context.Background(), "dup@example.com", "hash1"); err != nil {
		t.Fatalf("first Create error: %v", err)
	}

	_, err := repo.Create(context.Background(), "dup@example.com", "hash2")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestMemoryRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	if _, err := repo.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepository_SetActive(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	created, err := repo.Create(context.Background(), "user@example.com", "hash")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := repo.SetActive(context.Background(), created.ID, false); err != nil {
		t.Fatalf("SetActive error: %v", err)
	}

	got, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.IsActive {
		t.Fatalf("expected user to be inactive")
	}
}
