package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/modules/cache"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)        {}
func (m *mockLogger) Info(msg string, args ...any)         {}
func (m *mockLogger) Warn(msg string, args ...any)         {}
func (m *mockLogger) Error(msg string, args ...any)        {}
func (m *mockLogger) With(args ...any) types.Logger        { return m }
func (m *mockLogger) WithError(err error) types.Logger     { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// countingCache records calls and can be told to fail.
type countingCache struct {
	mu          sync.Mutex
	tasks       []domain.Task
	found       bool
	gets        int
	sets        int
	invalidates int
	getErr      error
}

func (c *countingCache) Get(context.Context) ([]domain.Task, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.tasks, c.found, nil
}

func (c *countingCache) Set(_ context.Context, tasks []domain.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.tasks = tasks
	c.found = true
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidates++
	c.tasks = nil
	c.found = false
	return nil
}

func newTestService(t *testing.T, c cache.TaskListCache) (*Service, *Store) {
	t.Helper()
	store := NewStore(setupTestDB(t))
	return NewService(store, c, nil, &mockLogger{}), store
}

func TestService_AddAndList(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	added, err := svc.AddTask(ctx, "Buy milk", "2%")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, added.Status)

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, added.ID, tasks[0].ID)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, "2%", tasks[0].Description)
}

func TestService_ListReadsThroughCache(t *testing.T) {
	c := &countingCache{}
	svc, _ := newTestService(t, c)
	ctx := context.Background()

	_, err := svc.AddTask(ctx, "Buy milk", "")
	require.NoError(t, err)

	first, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	second, err := svc.ListTasks(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, c.gets)
	assert.Equal(t, 1, c.sets, "second listing should be served from cache")
}

func TestService_MutationsInvalidateCache(t *testing.T) {
	c := &countingCache{}
	svc, _ := newTestService(t, c)
	ctx := context.Background()

	added, err := svc.AddTask(ctx, "Buy milk", "")
	require.NoError(t, err)
	assert.Equal(t, 1, c.invalidates)

	_, err = svc.ListTasks(ctx)
	require.NoError(t, err)

	changed, err := svc.CompleteTask(ctx, added.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, c.invalidates)

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.StatusCompleted, tasks[0].Status)

	deleted, err := svc.DeleteTask(ctx, added.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 3, c.invalidates)

	tasks, err = svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_NoOpMutationsKeepCache(t *testing.T) {
	c := &countingCache{}
	svc, _ := newTestService(t, c)
	ctx := context.Background()

	changed, err := svc.CompleteTask(ctx, 42)
	require.NoError(t, err)
	assert.False(t, changed)

	deleted, err := svc.DeleteTask(ctx, 42)
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Zero(t, c.invalidates)
}

func TestService_CacheErrorFallsBackToDatabase(t *testing.T) {
	c := &countingCache{getErr: errors.New("connection refused")}
	svc, _ := newTestService(t, c)
	ctx := context.Background()

	_, err := svc.AddTask(ctx, "Buy milk", "")
	require.NoError(t, err)

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestService_ConcurrentListing(t *testing.T) {
	svc, _ := newTestService(t, &countingCache{})
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.AddTask(ctx, title, "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := svc.ListTasks(ctx)
			if err != nil {
				errs <- err
				return
			}
			if len(tasks) != 3 {
				errs <- errors.New("unexpected listing size")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestService_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rc := cache.New(client, "tasks:", time.Minute)
	svc, _ := newTestService(t, rc)
	ctx := context.Background()

	added, err := svc.AddTask(ctx, "<b>bold</b>", "desc")
	require.NoError(t, err)

	_, err = svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("tasks:list"))

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "<b>bold</b>", tasks[0].Title)
	assert.Equal(t, uint64(1), rc.Stats().Hits)

	_, err = svc.CompleteTask(ctx, added.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists("tasks:list"))

	tasks, err = svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.StatusCompleted, tasks[0].Status)
}

type listResult struct {
	tasks []domain.Task
	err   error
}

// holdFirstListing parks the first SELECT on store after its rows are read
// until release is closed. entered is closed once the query is parked.
func holdFirstListing(t *testing.T, store *Store) (entered, release chan struct{}) {
	t.Helper()
	entered = make(chan struct{})
	release = make(chan struct{})

	var held atomic.Bool
	err := store.db.Callback().Query().After("gorm:query").Register("test:hold_listing", func(*gorm.DB) {
		if held.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
	})
	require.NoError(t, err)
	return entered, release
}

func titles(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestService_ListingAfterAddSeesTask(t *testing.T) {
	tests := []struct {
		name  string
		cache func(t *testing.T) cache.TaskListCache
	}{
		{"no cache", func(*testing.T) cache.TaskListCache { return nil }},
		{"redis cache", func(t *testing.T) cache.TaskListCache {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return cache.New(client, "tasks:", 5*time.Minute)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, tt.cache(t))
			ctx := context.Background()
			entered, release := holdFirstListing(t, store)
			var releaseOnce sync.Once
			unblock := func() { releaseOnce.Do(func() { close(release) }) }
			t.Cleanup(unblock)

			early := make(chan listResult, 1)
			go func() {
				tasks, err := svc.ListTasks(ctx)
				early <- listResult{tasks, err}
			}()
			<-entered

			_, err := svc.AddTask(ctx, "Buy milk", "")
			require.NoError(t, err)

			late := make(chan listResult, 1)
			go func() {
				tasks, err := svc.ListTasks(ctx)
				late <- listResult{tasks, err}
			}()

			var after listResult
			select {
			case after = <-late:
			case <-time.After(500 * time.Millisecond):
				unblock()
				after = <-late
			}
			unblock()

			require.NoError(t, after.err)
			assert.Contains(t, titles(after.tasks), "Buy milk")

			before := <-early
			require.NoError(t, before.err)
			assert.Empty(t, before.tasks)

			again, err := svc.ListTasks(ctx)
			require.NoError(t, err)
			assert.Contains(t, titles(again), "Buy milk", "listing read before the add must not be cached")
		})
	}
}
