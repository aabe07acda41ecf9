package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/task-manager/modules/activity"
	"github.com/example/task-manager/modules/cache"
	"github.com/example/task-manager/modules/task"
	"github.com/example/task-manager/modules/web"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cmd := newRootCommand(run)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
}

func run(ctx context.Context, cfg Config) error {
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(cfg.LogLevel),
		mono.WithLogFormat(cfg.LogFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	logger := app.Logger()

	var listingCache *cache.RedisCache
	if cfg.CacheEnabled() {
		listingCache, err = cache.Connect(ctx, cache.Config{
			RedisAddr: cfg.RedisAddr,
			Prefix:    cfg.CachePrefix,
			TTL:       cfg.CacheTTL,
		})
		if err != nil {
			return err
		}
	}

	taskCfg := task.Config{DBPath: cfg.DBPath, Debug: cfg.DBDebug}
	if listingCache != nil {
		taskCfg.Cache = listingCache
	}

	// Modules must be registered in dependency order
	if err := app.Register(activity.NewModule(cfg.ActivitySize, logger)); err != nil {
		return fmt.Errorf("failed to register activity module: %w", err)
	}
	if err := app.Register(task.NewModule(taskCfg, logger)); err != nil {
		return fmt.Errorf("failed to register task module: %w", err)
	}
	var collectors []prometheus.Collector
	if listingCache != nil {
		collectors = append(collectors, cache.NewStatsCollector(listingCache))
	}
	if err := app.Register(web.NewModule(cfg.HTTPAddr, logger, collectors...)); err != nil {
		return fmt.Errorf("failed to register web module: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		if listingCache != nil {
			_ = listingCache.Close()
		}
		return fmt.Errorf("failed to start app: %w", err)
	}

	printStartupInfo(logger, cfg)

	operations := map[string]gfshutdown.Operation{
		"mono-app": func(ctx context.Context) error {
			logger.Info("Graceful shutdown initiated")
			return app.Stop(ctx)
		},
	}
	if listingCache != nil {
		operations["redis"] = func(context.Context) error {
			return listingCache.Close()
		}
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, operations)
	exitCode := <-wait
	logger.Info("Application exited", "code", exitCode)
	os.Exit(exitCode)
	return nil
}

func printStartupInfo(logger types.Logger, cfg Config) {
	cacheState := "disabled"
	if cfg.CacheEnabled() {
		cacheState = cfg.RedisAddr
	}
	logger.Info("Task manager started",
		"addr", cfg.HTTPAddr,
		"database", cfg.DBPath,
		"cache", cacheState,
	)
	logger.Info("Endpoints",
		"page", "GET|POST /",
		"api", "/api/v1/tasks, /api/v1/activity",
		"ops", "GET /health, GET /metrics",
	)
}
