package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedTasks(t *testing.T, repo *MemoryRepository, userID uuid.UUID, specs []Task) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := range specs {
		specs[i].UserID = userID
		specs[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		specs[i].UpdatedAt = specs[i].CreatedAt
		if err := repo.Create(context.Background(), &specs[i]); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
}

func titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Title
	}
	return out
}

func TestMemoryRepository_SortByPriority(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	userID := uuid.New()
	seedTasks(t, repo, userID, []Task{
		{Title: "medium", Priority: PriorityMedium},
		{Title: "high", Priority: PriorityHigh},
		{Title: "low", Priority: PriorityLow},
	})

	tasks, _, err := repo.ListByUser(context.Background(), userID, ListFilter{SortBy: "priority", Order: "desc"})
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}

	got := titles(tasks)
	want := []string{"high", "medium", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestMemoryRepository_Pagination(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	userID := uuid.New()
	seedTasks(t, repo, userID, []Task{
		{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}, {Title: "e"},
	})

	page, total, err := repo.ListByUser(context.Background(), userID, ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if got := titles(page); len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("unexpected page: %v", got)
	}

	// Offset past the end yields an empty page, not an error.
	page, total, err = repo.ListByUser(context.Background(), userID, ListFilter{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if total != 5 || len(page) != 0 {
		t.Fatalf("total = %d, page len = %d, want 5 and 0", total, len(page))
	}
}

func TestMemoryRepository_ReturnsClones(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	userID := uuid.New()
	task := Task{UserID: userID, Title: "stable"}
	if err := repo.Create(context.Background(), &task); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := repo.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	got.Title = "mutated"

	again, err := repo.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if again.Title != "stable" {
		t.Fatalf("stored task mutated through a returned pointer")
	}
}

func TestMemoryRepository_DeleteMissing(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	if err := repo.Delete(context.Background(), uuid.New()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
