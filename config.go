package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/task-manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/urfave/cli/v3"
)

// Config is the resolved process configuration.
type Config struct {
	DBPath          string
	DBDebug         bool
	HTTPAddr        string
	RedisAddr       string
	CachePrefix     string
	CacheTTL        time.Duration
	ActivitySize    int
	LogLevel        mono.LogLevel
	LogFormat       mono.LogFormat
	ShutdownTimeout time.Duration
}

// CacheEnabled reports whether a Redis listing cache was requested.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// newRootCommand builds the CLI. run receives the parsed configuration.
func newRootCommand(run func(ctx context.Context, cfg Config) error) *cli.Command {
	cacheDefaults := cache.DefaultConfig()
	return &cli.Command{
		Name:  "task-manager",
		Usage: "Serve the task list page backed by SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-path",
				Usage:   "SQLite database file, created if missing",
				Value:   "tasks.db",
				Sources: cli.EnvVars("DB_PATH"),
			},
			&cli.BoolFlag{
				Name:    "db-debug",
				Usage:   "Log every SQL statement",
				Sources: cli.EnvVars("DB_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address",
				Value:   ":3000",
				Sources: cli.EnvVars("HTTP_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the listing cache (empty = no cache)",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "cache-prefix",
				Usage:   "Key prefix for cached listings",
				Value:   cacheDefaults.Prefix,
				Sources: cli.EnvVars("CACHE_PREFIX"),
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Usage:   "Lifetime of a cached listing",
				Value:   cacheDefaults.TTL,
				Sources: cli.EnvVars("CACHE_TTL"),
			},
			&cli.IntFlag{
				Name:    "activity-size",
				Usage:   "Number of recent task events to keep",
				Value:   50,
				Sources: cli.EnvVars("ACTIVITY_SIZE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.DurationFlag{
				Name:    "shutdown-timeout",
				Usage:   "Grace period for stopping modules",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("SHUTDOWN_TIMEOUT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}
}

func configFromCommand(cmd *cli.Command) (Config, error) {
	level, err := parseLogLevel(cmd.String("log-level"))
	if err != nil {
		return Config{}, err
	}
	format, err := parseLogFormat(cmd.String("log-format"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:          cmd.String("db-path"),
		DBDebug:         cmd.Bool("db-debug"),
		HTTPAddr:        cmd.String("addr"),
		RedisAddr:       cmd.String("redis-addr"),
		CachePrefix:     cmd.String("cache-prefix"),
		CacheTTL:        cmd.Duration("cache-ttl"),
		ActivitySize:    int(cmd.Int("activity-size")),
		LogLevel:        level,
		LogFormat:       format,
		ShutdownTimeout: cmd.Duration("shutdown-timeout"),
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("db-path must not be empty")
	}
	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("cache-ttl must be positive, got %s", cfg.CacheTTL)
	}
	return cfg, nil
}

func parseLogLevel(s string) (mono.LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return mono.LogLevelDebug, nil
	case "info", "":
		return mono.LogLevelInfo, nil
	case "warn", "warning":
		return mono.LogLevelWarn, nil
	case "error":
		return mono.LogLevelError, nil
	default:
		return mono.LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func parseLogFormat(s string) (mono.LogFormat, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return mono.LogFormatText, nil
	case "json":
		return mono.LogFormatJSON, nil
	default:
		return mono.LogFormatText, fmt.Errorf("unknown log format %q", s)
	}
}
