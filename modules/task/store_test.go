package task

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domain "github.com/example/task-manager/domain/task"
	"gorm.io/gorm"
)

// setupTestDB opens a migrated SQLite database in a temporary directory.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenDatabase(filepath.Join(t.TempDir(), "tasks.db"), false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := NewStore(db).Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// steppedClock returns a clock that advances by step on every call.
func steppedClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func TestStore_Migrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("third Migrate() error = %v", err)
	}
}

func TestStore_AddTask(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	before := time.Now()
	added, err := store.AddTask(ctx, "Buy milk", "2%")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	if added.ID == 0 {
		t.Error("expected a generated id")
	}
	if added.Status != domain.StatusPending {
		t.Errorf("expected status %q, got %q", domain.StatusPending, added.Status)
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	got := tasks[0]
	if got.Title != "Buy milk" || got.Description != "2%" {
		t.Errorf("unexpected task %+v", got)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("expected status %q, got %q", domain.StatusPending, got.Status)
	}
	if got.CreatedAt.Before(before) {
		t.Errorf("created_at %v is earlier than the call time %v", got.CreatedAt, before)
	}
}

func TestStore_AddTask_EmptyTitleAccepted(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	added, err := store.AddTask(context.Background(), "", "")
	if err != nil {
		t.Fatalf("AddTask() with empty title error = %v", err)
	}
	if added.Title != "" {
		t.Errorf("expected empty title, got %q", added.Title)
	}
}

func TestStore_ListTasks_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(2 * time.Hour), base.Add(time.Hour)}
	i := 0
	store.now = func() time.Time {
		now := times[i]
		i++
		return now
	}

	for _, title := range []string{"first", "second", "third"} {
		if _, err := store.AddTask(ctx, title, ""); err != nil {
			t.Fatalf("AddTask(%q) error = %v", title, err)
		}
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}

	want := []string{"second", "third", "first"}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Errorf("position %d: expected %q, got %q", i, title, tasks[i].Title)
		}
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].CreatedAt.After(tasks[i-1].CreatedAt) {
			t.Errorf("listing not sorted by created_at descending at %d", i)
		}
	}
}

func TestStore_ListTasks_SubSecondOrdering(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	store.now = steppedClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 250*time.Millisecond)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		if _, err := store.AddTask(ctx, title, ""); err != nil {
			t.Fatalf("AddTask(%q) error = %v", title, err)
		}
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	got := ""
	for _, task := range tasks {
		got += task.Title
	}
	if got != "edcba" {
		t.Errorf("expected order %q, got %q", "edcba", got)
	}
}

func TestStore_ListTasks_NullDescription(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if err := db.Exec("INSERT INTO tasks (title) VALUES (?)", "no description").Error; err != nil {
		t.Fatalf("raw insert error = %v", err)
	}

	tasks, err := store.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Description != "" {
		t.Errorf("expected empty description, got %q", tasks[0].Description)
	}
	if tasks[0].Status != domain.StatusPending {
		t.Errorf("expected default status %q, got %q", domain.StatusPending, tasks[0].Status)
	}
	if tasks[0].CreatedAt.IsZero() {
		t.Error("expected created_at to default to the current timestamp")
	}
}

func TestStore_StatusCheckConstraint(t *testing.T) {
	db := setupTestDB(t)

	err := db.Exec("INSERT INTO tasks (title, status) VALUES (?, ?)", "bad", "archived").Error
	if err == nil {
		t.Fatal("expected CHECK constraint violation for status 'archived'")
	}
}

func TestStore_CompleteTask(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	target, err := store.AddTask(ctx, "Buy milk", "2%")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	other, err := store.AddTask(ctx, "Walk dog", "")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	t.Run("existing task", func(t *testing.T) {
		changed, err := store.CompleteTask(ctx, target.ID)
		if err != nil {
			t.Fatalf("CompleteTask() error = %v", err)
		}
		if !changed {
			t.Error("expected the row to change")
		}

		tasks, err := store.ListTasks(ctx)
		if err != nil {
			t.Fatalf("ListTasks() error = %v", err)
		}
		for _, task := range tasks {
			switch task.ID {
			case target.ID:
				if task.Status != domain.StatusCompleted {
					t.Errorf("expected status %q, got %q", domain.StatusCompleted, task.Status)
				}
				if task.Title != target.Title || task.Description != target.Description {
					t.Errorf("completing changed other fields: %+v", task)
				}
				if !task.CreatedAt.Equal(target.CreatedAt) {
					t.Errorf("completing changed created_at: %v != %v", task.CreatedAt, target.CreatedAt)
				}
			case other.ID:
				if task.Status != domain.StatusPending {
					t.Errorf("unrelated task changed status to %q", task.Status)
				}
			}
		}
	})

	t.Run("repeated call is idempotent", func(t *testing.T) {
		changed, err := store.CompleteTask(ctx, target.ID)
		if err != nil {
			t.Fatalf("CompleteTask() error = %v", err)
		}
		if changed {
			t.Error("expected no change for an already completed task")
		}
	})

	t.Run("non-existent task", func(t *testing.T) {
		before, _ := store.ListTasks(ctx)
		changed, err := store.CompleteTask(ctx, 9999)
		if err != nil {
			t.Fatalf("CompleteTask() error = %v", err)
		}
		if changed {
			t.Error("expected no change for a non-existent id")
		}
		after, _ := store.ListTasks(ctx)
		if len(after) != len(before) {
			t.Errorf("table changed: %d rows before, %d after", len(before), len(after))
		}
	})
}

func TestStore_DeleteTask(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	first, _ := store.AddTask(ctx, "first", "")
	second, _ := store.AddTask(ctx, "second", "")

	t.Run("delete existing task", func(t *testing.T) {
		deleted, err := store.DeleteTask(ctx, second.ID)
		if err != nil {
			t.Fatalf("DeleteTask() error = %v", err)
		}
		if !deleted {
			t.Error("expected the row to be deleted")
		}

		tasks, _ := store.ListTasks(ctx)
		if len(tasks) != 1 || tasks[0].ID != first.ID {
			t.Errorf("expected only task %d to remain, got %+v", first.ID, tasks)
		}

		var count int64
		db.Table("tasks").Where("id = ?", second.ID).Count(&count)
		if count != 0 {
			t.Error("expected a hard delete")
		}
	})

	t.Run("delete non-existent task", func(t *testing.T) {
		deleted, err := store.DeleteTask(ctx, 9999)
		if err != nil {
			t.Fatalf("DeleteTask() error = %v", err)
		}
		if deleted {
			t.Error("expected no deletion for a non-existent id")
		}
	})

	t.Run("ids are not reused", func(t *testing.T) {
		third, err := store.AddTask(ctx, "third", "")
		if err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
		if third.ID <= second.ID {
			t.Errorf("expected id greater than deleted id %d, got %d", second.ID, third.ID)
		}
	})
}

func TestStore_Scenario(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	added, err := store.AddTask(ctx, "Buy milk", "2%")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if added.ID != 1 {
		t.Fatalf("expected first id to be 1, got %d", added.ID)
	}

	if _, err := store.CompleteTask(ctx, 1); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	tasks, _ := store.ListTasks(ctx)
	if len(tasks) != 1 || tasks[0].Status != domain.StatusCompleted {
		t.Fatalf("expected one completed task, got %+v", tasks)
	}

	if _, err := store.DeleteTask(ctx, 1); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	tasks, _ = store.ListTasks(ctx)
	if len(tasks) != 0 {
		t.Errorf("expected empty list, got %+v", tasks)
	}
}

func TestStore_ListTasks_RejectsUnknownStatus(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	// The CHECK constraint lets an explicit NULL status through.
	if err := db.Exec("INSERT INTO tasks (title, status) VALUES (?, NULL)", "orphan").Error; err != nil {
		t.Fatalf("raw insert error = %v", err)
	}

	_, err := store.ListTasks(context.Background())
	if err == nil {
		t.Fatal("ListTasks() expected error for a row without a valid status")
	}
	if !strings.Contains(err.Error(), "invalid status") {
		t.Errorf("ListTasks() error = %v, want invalid status", err)
	}
}
