package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/dkriz/todo-api/internal/database"
)

// allowedSortColumns guards the ORDER BY clause against injection.
var allowedSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"priority":   true,
	"due_date":   true,
}

// BunRepository persists tasks in Postgres via bun.
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) Create(ctx context.Context, t *Task) error {
	dbTask := mapModelToDBTask(t)

	_, err := r.db.NewInsert().
		Model(dbTask).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	*t = *mapDBTaskToModel(dbTask)
	return nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task by id: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

func (r *BunRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Task, int, error) {
	q := r.db.NewSelect().
		Model((*database.Task)(nil)).
		Where("user_id = ?", userID)

	switch filter.Status {
	case StatusPending:
		q = q.Where("completed = ?", false)
	case StatusCompleted:
		q = q.Where("completed = ?", true)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	sortBy := filter.SortBy
	if !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := filter.Order
	if order != "asc" && order != "desc" {
		order = "asc"
	}
	q = q.Order(sortBy + " " + order)

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var dbTasks []database.Task
	if err := q.Scan(ctx, &dbTasks); err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(dbTasks))
	for i := range dbTasks {
		tasks = append(tasks, *mapDBTaskToModel(&dbTasks[i]))
	}

	return tasks, total, nil
}

func (r *BunRepository) Update(ctx context.Context, t *Task) error {
	dbTask := mapModelToDBTask(t)

	result, err := r.db.NewUpdate().
		Model(dbTask).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:           dbt.ID,
		UserID:       dbt.UserID,
		Title:        dbt.Title,
		Description:  dbt.Description,
		Completed:    dbt.Completed,
		Priority:     dbt.Priority,
		DueDate:      dbt.DueDate,
		ReminderDate: dbt.ReminderDate,
		CreatedAt:    dbt.CreatedAt,
		UpdatedAt:    dbt.UpdatedAt,
	}
}

func mapModelToDBTask(t *Task) *database.Task {
	return &database.Task{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Description:  t.Description,
		Completed:    t.Completed,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		ReminderDate: t.ReminderDate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
