package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dkriz/todo-api/internal/logging"
)

var (
	ErrTitleRequired   = errors.New("task title cannot be empty")
	ErrTitleTooLong    = errors.New("task title cannot exceed 255 characters")
	ErrInvalidPriority = errors.New("priority must be low, medium or high")
	ErrInvalidStatus   = errors.New("status must be pending or completed")
	ErrNoFields        = errors.New("no update provided")
)

// Service is the task operation facade. Every operation takes the caller's
// resolved user id and enforces ownership: a task belonging to another user
// is reported as ErrNotFound, never as a distinct unauthorized result, so
// that task existence is not confirmed to non-owners.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInput carries the client-provided fields for a new task.
type CreateInput struct {
	Title        string
	Description  *string
	Priority     string
	DueDate      *time.Time
	ReminderDate *time.Time
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Title        *string
	Description  *string
	Priority     *string
	DueDate      *time.Time
	ReminderDate *time.Time
	Completed    *bool
}

// Empty reports whether the update carries no fields at all.
func (in *UpdateInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DueDate == nil && in.ReminderDate == nil && in.Completed == nil
}

// DeleteResult describes the outcome of the two-phase delete protocol.
type DeleteResult struct {
	// Deleted is true only after a confirmed call removed the task.
	Deleted bool
	// RequiresConfirmation is true when the first, unconfirmed call returned
	// the task summary and a prompt instead of deleting.
	RequiresConfirmation bool
	Message              string
	Task                 *Task
}

// BulkUpdateFailure reports why one id of a bulk update was not applied.
type BulkUpdateFailure struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// BulkUpdateResult summarizes a bulk update: how many tasks changed and which
// ids failed.
type BulkUpdateResult struct {
	UpdatedCount  int                 `json:"updated_count"`
	FailedUpdates []BulkUpdateFailure `json:"failed_updates"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	// Length limits count characters, not bytes.
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, ErrTitleTooLong
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	now := time.Now()
	t := &Task{
		UserID:       userID,
		Title:        title,
		Description:  in.Description,
		Completed:    false,
		Priority:     priority,
		DueDate:      in.DueDate,
		ReminderDate: in.ReminderDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created", "task_id", t.ID, "user_id", userID)
	return t, nil
}

// Get returns the task only when it belongs to the caller.
func (s *Service) Get(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	return s.getOwned(ctx, userID, taskID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Task, int, error) {
	switch filter.Status {
	case "", StatusPending, StatusCompleted:
	default:
		return nil, 0, ErrInvalidStatus
	}

	return s.repo.ListByUser(ctx, userID, filter)
}

func (s *Service) Update(ctx context.Context, userID, taskID uuid.UUID, in UpdateInput) (*Task, error) {
	if in.Empty() {
		return nil, ErrNoFields
	}

	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if utf8.RuneCountInString(title) > MaxTitleLength {
			return nil, ErrTitleTooLong
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Priority != nil {
		if !ValidPriority(*in.Priority) {
			return nil, ErrInvalidPriority
		}
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.ReminderDate != nil {
		t.ReminderDate = in.ReminderDate
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}

	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return t, nil
}

// SetCompleted sets the completion flag to an explicit value.
func (s *Service) SetCompleted(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*Task, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	t.Completed = completed
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	return t, nil
}

// ToggleCompleted flips the completion flag.
func (s *Service) ToggleCompleted(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	t.Completed = !t.Completed
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	return t, nil
}

// Delete implements the two-phase delete protocol: the first call without
// confirmation returns the task summary and a prompt; only a call with
// confirmed=true removes the task. Deleting an id that no longer exists
// reports ErrNotFound rather than failing catastrophically.
func (s *Service) Delete(ctx context.Context, userID, taskID uuid.UUID, confirmed bool) (*DeleteResult, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if !confirmed {
		return &DeleteResult{
			RequiresConfirmation: true,
			Message:              fmt.Sprintf("Are you sure you want to delete '%s'?", t.Title),
			Task:                 t,
		}, nil
	}

	if err := s.repo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("task deleted", "task_id", taskID, "user_id", userID)

	return &DeleteResult{
		Deleted: true,
		Message: fmt.Sprintf("Task '%s' has been deleted successfully!", t.Title),
	}, nil
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	tasks, _, err := s.repo.ListByUser(ctx, userID, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for stats: %w", err)
	}

	stats := &Stats{
		ByPriority: map[string]int{
			PriorityLow:    0,
			PriorityMedium: 0,
			PriorityHigh:   0,
		},
	}

	for i := range tasks {
		stats.Total++
		if tasks[i].Completed {
			stats.Completed++
		}
		stats.ByPriority[tasks[i].Priority]++
	}
	stats.Pending = stats.Total - stats.Completed

	return stats, nil
}

// BulkUpdate applies the same partial update to each id, collecting per-id
// failures instead of aborting. Ownership is enforced per id.
func (s *Service) BulkUpdate(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID, in UpdateInput) (*BulkUpdateResult, error) {
	if in.Empty() {
		return nil, ErrNoFields
	}

	result := &BulkUpdateResult{
		FailedUpdates: []BulkUpdateFailure{},
	}

	for _, id := range taskIDs {
		if _, err := s.Update(ctx, userID, id, in); err != nil {
			result.FailedUpdates = append(result.FailedUpdates, BulkUpdateFailure{
				TaskID: id.String(),
				Error:  bulkErrorMessage(err),
			})
			continue
		}
		result.UpdatedCount++
	}

	return result, nil
}

func bulkErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Task not found or does not belong to user"
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrTitleTooLong),
		errors.Is(err, ErrInvalidPriority):
		return err.Error()
	default:
		return "failed to update task"
	}
}

// getOwned fetches the task and verifies it belongs to the caller. Ownership
// mismatch reads as not-found so that existence is not leaked; internal logs
// still record the mismatch.
func (s *Service) getOwned(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if t.UserID != userID {
		s.logger.Warn("ownership mismatch on task access",
			"task_id", taskID,
			"owner_id", t.UserID,
			"caller_id", userID,
		)
		return nil, ErrNotFound
	}

	return t, nil
}
