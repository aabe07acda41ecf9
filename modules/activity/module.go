package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/task-manager/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 50

// ActivityModule records task events into a bounded, newest-first feed.
type ActivityModule struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
	logger   types.Logger
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.ServiceProviderModule = (*ActivityModule)(nil)

// NewModule creates an activity module that keeps up to capacity entries.
func NewModule(capacity int, logger types.Logger) *ActivityModule {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ActivityModule{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
		logger:   logger.WithModule("activity"),
	}
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// RegisterEventConsumers subscribes to the task events.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskAddedV1, m.handleTaskAdded, m); err != nil {
		return fmt.Errorf("failed to register TaskAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	m.logger.Info("registered event consumers", "events", "TaskAdded,TaskCompleted,TaskDeleted")
	return nil
}

// RegisterServices registers the recent-activity service.
func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "recent-activity", json.Unmarshal, json.Marshal, m.recentActivity,
	); err != nil {
		return fmt.Errorf("failed to register recent-activity service: %w", err)
	}
	return nil
}

func (m *ActivityModule) handleTaskAdded(_ context.Context, event events.TaskAddedEvent, _ *mono.Msg) error {
	m.logger.Info("task added", "task_id", event.TaskID, "title", event.Title)
	m.record(event.TaskID, KindTaskAdded, fmt.Sprintf("Task #%d '%s' added", event.TaskID, event.Title))
	return nil
}

func (m *ActivityModule) handleTaskCompleted(_ context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	m.logger.Info("task completed", "task_id", event.TaskID)
	m.record(event.TaskID, KindTaskCompleted, fmt.Sprintf("Task #%d completed", event.TaskID))
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.logger.Info("task deleted", "task_id", event.TaskID)
	m.record(event.TaskID, KindTaskDeleted, fmt.Sprintf("Task #%d deleted", event.TaskID))
	return nil
}

// recentActivity handles the recent-activity service request.
func (m *ActivityModule) recentActivity(_ context.Context, req RecentActivityRequest, _ *mono.Msg) (RecentActivityResponse, error) {
	entries := m.Recent(req.Limit)
	return RecentActivityResponse{Entries: entries, Total: len(entries)}, nil
}

func (m *ActivityModule) record(taskID int64, kind Kind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == m.capacity {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:len(m.entries)-1]
	}
	m.entries = append(m.entries, Entry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Kind:      kind,
		Message:   message,
		Timestamp: m.now(),
	})
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (m *ActivityModule) Recent(limit int) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.entries[i])
	}
	return result
}

// Start starts the module.
func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("module started - listening for task events")
	return nil
}

// Stop stops the module.
func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("module stopped")
	return nil
}
