package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the task module.
type Config struct {
	// DBPath is the SQLite file. It is created if missing.
	DBPath string
	// Debug enables GORM statement logging.
	Debug bool
	// Cache is the optional listing cache. Nil disables caching.
	Cache cache.TaskListCache
}

// TaskModule owns the tasks table and exposes it as request-reply services.
type TaskModule struct {
	cfg      Config
	db       *gorm.DB
	store    *Store
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule.
func NewModule(cfg Config, logger types.Logger) *TaskModule {
	if cfg.DBPath == "" {
		cfg.DBPath = "tasks.db"
	}
	return &TaskModule{
		cfg:    cfg,
		logger: logger.WithModule("task"),
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetEventBus receives the event bus used to publish task events.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskAddedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes service names with "services.task.".
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "add-task", json.Unmarshal, json.Marshal, m.addTask,
	); err != nil {
		return fmt.Errorf("failed to register add-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "complete-task", json.Unmarshal, json.Marshal, m.completeTask,
	); err != nil {
		return fmt.Errorf("failed to register complete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	m.logger.Info("registered services", "services", "add-task,list-tasks,complete-task,delete-task")
	return nil
}

// Start opens the SQLite file and ensures the schema exists.
// Any failure here is fatal for the application.
func (m *TaskModule) Start(_ context.Context) error {
	m.logger.Info("opening SQLite database", "path", m.cfg.DBPath)

	db, err := OpenDatabase(m.cfg.DBPath, m.cfg.Debug)
	if err != nil {
		return err
	}
	m.db = db

	m.store = NewStore(db)
	if err := m.store.Migrate(); err != nil {
		return err
	}

	if m.eventBus == nil {
		m.logger.Warn("event bus not set, task events will not be published")
	}
	m.service = NewService(m.store, m.cfg.Cache, m.eventBus, m.logger)

	m.logger.Info("module started")
	return nil
}

// Stop closes the database connection.
func (m *TaskModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("database connection closed")
	return nil
}

// Health pings the database.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	details := map[string]any{
		"driver": "sqlite",
		"path":   m.cfg.DBPath,
		"cache":  "disabled",
	}
	message := "operational"

	// The listing falls back to the database, so an unreachable cache
	// degrades the module without failing it.
	if reporter, ok := m.cfg.Cache.(cache.Reporter); ok {
		details["cache"] = "ok"
		if err := reporter.Ping(ctx); err != nil {
			details["cache"] = fmt.Sprintf("unreachable: %v", err)
			message = "operational, listing cache unavailable"
		}
		details["cache_stats"] = reporter.Stats()
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: message,
		Details: details,
	}
}

// OpenDatabase opens (or creates) the SQLite file at path.
// Timestamps are written in UTC so created_at orders lexically.
func OpenDatabase(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
