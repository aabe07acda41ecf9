package task

import (
	"context"
	"fmt"
	"time"

	domain "github.com/example/task-manager/domain/task"
	"gorm.io/gorm"
)

// schemaDDL is the persisted layout of the tasks table. It is safe to run on
// every startup.
const schemaDDL = `CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT,
	status TEXT CHECK(status IN ('pending', 'completed')) DEFAULT 'pending',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// taskRecord is the GORM mapping of a tasks row.
type taskRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"not null"`
	Description *string
	Status      string    `gorm:"default:pending"`
	CreatedAt   time.Time
}

// TableName returns the table name for taskRecord.
func (taskRecord) TableName() string {
	return "tasks"
}

func (r *taskRecord) toDomain() domain.Task {
	t := domain.Task{
		ID:        r.ID,
		Title:     r.Title,
		Status:    domain.TaskStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	return t
}

// Store persists tasks in SQLite. It exclusively owns the tasks table.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a store over an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the tasks table if it does not exist yet.
func (s *Store) Migrate() error {
	if err := s.db.Exec(schemaDDL).Error; err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}

// AddTask inserts a pending task stamped with the current time.
// The title is stored as given; an empty title is not rejected here.
func (s *Store) AddTask(ctx context.Context, title, description string) (*domain.Task, error) {
	record := &taskRecord{
		Title:       title,
		Description: &description,
		Status:      string(domain.StatusPending),
		CreatedAt:   s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}

	t := record.toDomain()
	return &t, nil
}

// ListTasks returns every task, most recently created first.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(records))
	for i := range records {
		t := records[i].toDomain()
		if !t.Status.Valid() {
			return nil, fmt.Errorf("failed to list tasks: task %d has invalid status %q", t.ID, t.Status)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// CompleteTask marks the task as completed. It reports whether a pending row
// was changed; an unknown or already completed id is a silent no-op.
func (s *Store) CompleteTask(ctx context.Context, id int64) (bool, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&taskRecord{}).
			Where("id = ? AND status <> ?", id, string(domain.StatusCompleted)).
			Update("status", string(domain.StatusCompleted))
		if result.Error != nil {
			return result.Error
		}
		changed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete task %d: %w", id, err)
	}
	return changed, nil
}

// DeleteTask removes the task row. It reports whether a row was removed; an
// unknown id is a silent no-op.
func (s *Store) DeleteTask(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&taskRecord{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	return deleted, nil
}
