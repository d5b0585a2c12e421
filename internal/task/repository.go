package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("task not found")

// ListFilter narrows and orders a per-user task listing. The zero value lists
// everything in insertion order (created_at ascending) without pagination.
type ListFilter struct {
	// Status is "", StatusPending or StatusCompleted.
	Status string
	// Limit caps the page size; 0 means no limit.
	Limit  int
	Offset int
	// SortBy is one of created_at, updated_at, title, priority, due_date.
	// Unknown values fall back to created_at.
	SortBy string
	// Order is "asc" or "desc"; anything else falls back to "asc".
	Order string
}

// Repository is the task store. Ownership checks live in the Service layer;
// repository lookups are by primary key or owning user only.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// ListByUser returns the filtered page plus the total count matching the
	// filter before pagination.
	ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Task, int, error)
	// Update persists every field of t; the caller is responsible for
	// read-modify-write of partial updates.
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}
