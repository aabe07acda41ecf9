package task

import (
	"context"
	"time"
)

// Confirmation messages returned by the mutating services. They are returned
// whether or not a row actually matched.
const (
	MsgTaskAdded     = "Task added successfully!"
	MsgTaskCompleted = "Task marked as completed!"
	MsgTaskDeleted   = "Task deleted successfully!"
)

// AddTaskRequest is the request for adding a task.
type AddTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AddTaskResponse is the response after adding a task.
type AddTaskResponse struct {
	Task    TaskResponse `json:"task"`
	Message string       `json:"message"`
}

// ListTasksRequest is the request for listing tasks.
type ListTasksRequest struct{}

// ListTasksResponse is the response containing all tasks, newest first.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// CompleteTaskRequest is the request for completing a task.
type CompleteTaskRequest struct {
	ID int64 `json:"id"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	ID int64 `json:"id"`
}

// MutationResponse is the response for complete and delete.
// Changed is false when the id did not match a row the operation could change.
type MutationResponse struct {
	ID      int64  `json:"id"`
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// TaskResponse represents a task in responses.
type TaskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskPort defines the interface driving adapters use to reach the task store.
type TaskPort interface {
	AddTask(ctx context.Context, title, description string) (*AddTaskResponse, error)
	ListTasks(ctx context.Context) (*ListTasksResponse, error)
	CompleteTask(ctx context.Context, id int64) (*MutationResponse, error)
	DeleteTask(ctx context.Context, id int64) (*MutationResponse, error)
}
