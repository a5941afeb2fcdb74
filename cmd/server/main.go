package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memorybox/internal/config"
	"memorybox/internal/database"
	"memorybox/internal/metrics"
	"memorybox/internal/response"
	"memorybox/internal/router"
	"memorybox/internal/services"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "memorybox: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Server.Environment, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting memorybox",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dbManager, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database", zap.Error(err))
		return err
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			logger.Error("Failed to close database connections", zap.Error(err))
		} else {
			logger.Info("Database connections closed successfully")
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(dbManager.DB())
	}

	// Initialize services
	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, m, logger)
	if err != nil {
		logger.Error("Failed to initialize services", zap.Error(err))
		return err
	}
	if err := serviceCollection.Start(ctx); err != nil {
		logger.Error("Failed to start background services", zap.Error(err))
		return err
	}

	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = cfg.Server.Environment == "development"
	responseConfig.MaskInternalErrors = cfg.Server.Environment == "production"
	responseBuilder := response.NewBuilder(responseConfig, logger)

	handler := router.New(router.FromCollection(serviceCollection, responseBuilder))

	// HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		errs = append(errs, err)
	} else {
		logger.Info("Server shutdown completed")
	}

	// drain in-flight evaluations before the database goes away
	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	logger.Info("Application shutdown completed")
	return errors.Join(errs...)
}

// initLogger builds a development logger outside production and staging
func initLogger(environment string, cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	switch environment {
	case "production", "staging":
		zapConfig = zap.NewProductionConfig()
	default:
		zapConfig = zap.NewDevelopmentConfig()
	}

	if cfg.Format == "json" {
		zapConfig.Encoding = "json"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
