package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository is the user directory. Two implementations exist: BunRepository
// (Postgres) and MemoryRepository (in-process, used by tests and the memory
// storage backend).
type Repository interface {
	// Create inserts a new user. The backing store's uniqueness constraint on
	// email is the source of truth; implementations return ErrDuplicateEmail
	// when it is violated.
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
