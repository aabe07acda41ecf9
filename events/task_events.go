package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskAddedEvent is emitted when a new task is stored.
type TaskAddedEvent struct {
	TaskID      int64     `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskAddedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-added
var TaskAddedV1 = helper.EventDefinition[TaskAddedEvent](
	"task", "TaskAdded", "v1",
)

// TaskCompletedEvent is emitted when a pending task is marked complete.
type TaskCompletedEvent struct {
	TaskID      int64     `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// TaskCompletedV1 is the typed event definition for task completion.
// Subject: events.task.v1.task-completed
var TaskCompletedV1 = helper.EventDefinition[TaskCompletedEvent](
	"task", "TaskCompleted", "v1",
)

// TaskDeletedEvent is emitted when a task row is removed.
type TaskDeletedEvent struct {
	TaskID    int64     `json:"task_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"task", "TaskDeleted", "v1",
)
