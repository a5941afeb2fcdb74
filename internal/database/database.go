package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"memorybox/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Open connects to Postgres, waits until it answers, and applies
// migrations. Connection attempts are retried with exponential backoff.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("🚀 Starting database initialization",
		zap.String("environment", cfg.Server.Environment))

	manager, err := NewManager(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	if err := waitForConnection(connectCtx, manager, cfg.Database.ConnectRetries, logger); err != nil {
		manager.Close()
		return nil, fmt.Errorf("database failed to become reachable: %w", err)
	}

	migrationsPath := determineMigrationsPath(cfg.Database.MigrationsPath)
	logger.Info("Using migrations path", zap.String("path", migrationsPath))

	if err := runMigrationsWithRetry(manager, migrationsPath, cfg.Database.ConnectRetries, logger); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	status := manager.Health(ctx)
	logger.Info("✅ Database ready",
		zap.String("status", status.Status),
		zap.Duration("response_time", status.ResponseTime),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	return manager, nil
}

func waitForConnection(ctx context.Context, manager *Manager, maxRetries int, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	operation := func() error {
		return manager.DB().PingContext(ctx)
	}

	return backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx),
		func(err error, d time.Duration) {
			logger.Warn("Database not reachable yet, retrying",
				zap.Error(err),
				zap.Duration("backoff", d),
			)
		},
	)
}

func runMigrationsWithRetry(manager *Manager, migrationsPath string, maxRetries int, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second

	return backoff.RetryNotify(
		func() error { return manager.Migrate(migrationsPath) },
		backoff.WithMaxRetries(b, uint64(maxRetries)),
		func(err error, d time.Duration) {
			logger.Warn("Migration attempt failed, retrying",
				zap.Error(err),
				zap.Duration("retry_in", d),
			)
		},
	)
}

func determineMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	for _, path := range []string{"./migrations", "../migrations", "../../migrations"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./migrations"
}
