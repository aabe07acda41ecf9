package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

const listFlightKey = "tasks:list"

// Service applies the task operations on top of the store: it reads the
// listing through the cache, invalidates it on every mutation and publishes
// task events.
type Service struct {
	store    *Store
	cache    cache.TaskListCache
	eventBus mono.EventBus
	logger   types.Logger
	sfGroup  singleflight.Group

	// cacheMu orders listing cache writes against invalidation. generation
	// counts committed mutations and is guarded by cacheMu.
	cacheMu    sync.Mutex
	generation uint64
}

// NewService creates a task service. A nil cache disables caching and a nil
// event bus disables event publishing.
func NewService(store *Store, c cache.TaskListCache, bus mono.EventBus, logger types.Logger) *Service {
	if c == nil {
		c = cache.NopCache{}
	}
	return &Service{
		store:    store,
		cache:    c,
		eventBus: bus,
		logger:   logger,
	}
}

// AddTask stores a new pending task.
func (s *Service) AddTask(ctx context.Context, title, description string) (*domain.Task, error) {
	t, err := s.store.AddTask(ctx, title, description)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	if s.eventBus != nil {
		event := events.TaskAddedEvent{
			TaskID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		}
		if err := events.TaskAddedV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("failed to publish TaskAdded event", "task_id", t.ID, "error", err)
		}
	}

	s.logger.Info("task added", "task_id", t.ID)
	return t, nil
}

// ListTasks returns all tasks, newest first. Concurrent cache misses share a
// single database read, but a read never spans a mutation that committed
// before the caller arrived.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	cached, found, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("cache read failed, querying database", "error", err)
	}
	if found {
		return cached, nil
	}

	val, err, _ := s.sfGroup.Do(listFlightKey, func() (any, error) {
		started := s.currentGeneration()
		tasks, err := s.store.ListTasks(ctx)
		if err != nil {
			return nil, err
		}
		s.storeListing(ctx, started, tasks)
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}

	tasks, ok := val.([]domain.Task)
	if !ok {
		return nil, fmt.Errorf("unexpected listing type %T", val)
	}
	return tasks, nil
}

func (s *Service) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// storeListing caches tasks unless a mutation committed after the read began.
func (s *Service) storeListing(ctx context.Context, started uint64, tasks []domain.Task) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.generation != started {
		s.logger.Debug("discarding listing read before a mutation", "read_generation", started, "generation", s.generation)
		return
	}
	if err := s.cache.Set(ctx, tasks); err != nil {
		s.logger.Warn("failed to cache task listing", "error", err)
	}
}

// CompleteTask marks a task completed. An unknown id is not an error.
func (s *Service) CompleteTask(ctx context.Context, id int64) (bool, error) {
	changed, err := s.store.CompleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	s.invalidate(ctx)

	if s.eventBus != nil {
		event := events.TaskCompletedEvent{TaskID: id, CompletedAt: time.Now().UTC()}
		if err := events.TaskCompletedV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("failed to publish TaskCompleted event", "task_id", id, "error", err)
		}
	}

	s.logger.Info("task completed", "task_id", id)
	return true, nil
}

// DeleteTask removes a task. An unknown id is not an error.
func (s *Service) DeleteTask(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	s.invalidate(ctx)

	if s.eventBus != nil {
		event := events.TaskDeletedEvent{TaskID: id, DeletedAt: time.Now().UTC()}
		if err := events.TaskDeletedV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("failed to publish TaskDeleted event", "task_id", id, "error", err)
		}
	}

	s.logger.Info("task deleted", "task_id", id)
	return true, nil
}

// invalidate runs after every committed mutation. Later listings start a
// fresh read instead of joining one in flight.
func (s *Service) invalidate(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.generation++
	s.sfGroup.Forget(listFlightKey)
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate task listing cache", "error", err)
	}
}
