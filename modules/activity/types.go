package activity

import (
	"context"
	"time"
)

// Kind identifies what happened to a task.
type Kind string

const (
	KindTaskAdded     Kind = "task_added"
	KindTaskCompleted Kind = "task_completed"
	KindTaskDeleted   Kind = "task_deleted"
)

// Entry is one recorded task event.
type Entry struct {
	ID        string    `json:"id"`
	TaskID    int64     `json:"task_id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentActivityRequest is the request for the recent-activity service.
type RecentActivityRequest struct {
	Limit int `json:"limit,omitempty"`
}

// RecentActivityResponse lists entries newest first.
type RecentActivityResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

// ActivityPort is the contract driving adapters use to read the feed.
type ActivityPort interface {
	RecentActivity(ctx context.Context, limit int) (*RecentActivityResponse, error)
}
