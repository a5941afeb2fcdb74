// file: internal/services/service_collection.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"memorybox/internal/appinfo"
	"memorybox/internal/badges"
	"memorybox/internal/cache"
	"memorybox/internal/config"
	"memorybox/internal/database"
	"memorybox/internal/events"
	"memorybox/internal/metrics"
	"memorybox/internal/repositories"
	"memorybox/internal/scheduler"
	"memorybox/internal/storage"

	"go.uber.org/zap"
)

// ServiceCollection holds every service and the infrastructure they share
type ServiceCollection struct {
	// Core Services
	GroupService   GroupService   `json:"-"`
	PostService    PostService    `json:"-"`
	CommentService CommentService `json:"-"`
	ImageService   ImageService   `json:"-"`
	BadgeService   BadgeService   `json:"-"`

	// Repository Collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure Components
	Cache     cache.Cache             `json:"-"`
	EventBus  events.EventBus         `json:"-"`
	Storage   storage.FileStorage     `json:"-"`
	Engine    *badges.Engine          `json:"-"`
	Sweeper   *scheduler.BadgeSweeper `json:"-"`
	Metrics   *metrics.Metrics        `json:"-"`
	Logger    *zap.Logger             `json:"-"`
	Config    *config.Config          `json:"-"`
	DBManager *database.Manager       `json:"-"`

	startTime time.Time
	mu        sync.Mutex
	started   bool
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Version      string                   `json:"version"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       string                   `json:"uptime"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Name         string                 `json:"name"`
	Status       string                 `json:"status"` // healthy, degraded, unhealthy
	ResponseTime string                 `json:"responseTime"`
	Error        string                 `json:"error,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewServiceCollection builds the dependency graph. m may be nil when
// metrics are disabled.
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Metrics:   m,
		Logger:    logger,
		startTime: time.Now(),
	}

	// Initialize in dependency order
	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := collection.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := collection.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := collection.initializeBackground(); err != nil {
		return nil, fmt.Errorf("failed to initialize background jobs: %w", err)
	}

	logger.Info("Service collection initialized successfully",
		zap.String("version", appinfo.Version()),
		zap.String("evaluation_mode", cfg.Badges.EvaluationMode),
		zap.Bool("sweep_enabled", cfg.Badges.SweepEnabled),
		zap.String("upload_provider", collection.Storage.Provider()),
	)
	return collection, nil
}

// ===============================
// INITIALIZATION METHODS
// ===============================

func (sc *ServiceCollection) initializeInfrastructure() error {
	sc.Logger.Info("Initializing infrastructure components")

	cacheConfig := cache.DefaultConfig()
	cacheConfig.Provider = sc.Config.Cache.Type
	cacheConfig.RedisURL = sc.Config.Cache.RedisURL
	cacheConfig.KeyPrefix = sc.Config.Cache.KeyPrefix
	if sc.Config.Cache.DefaultTTL > 0 {
		cacheConfig.TTL = sc.Config.Cache.DefaultTTL
	}

	c, err := cache.NewCache(cacheConfig, sc.Logger.Named("cache"))
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	busConfig := events.DefaultEventBusConfig()
	if sc.Config.Badges.EvaluateTimeout > 0 {
		busConfig.HandlerTimeout = sc.Config.Badges.EvaluateTimeout
	}
	sc.EventBus = events.NewEventBus(busConfig, sc.Logger.Named("events"))

	fs, err := storage.New(sc.Config.Uploads, sc.Logger.Named("storage"))
	if err != nil {
		_ = sc.Cache.Close()
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}
	sc.Storage = fs

	sc.Logger.Info("Infrastructure components initialized")
	return nil
}

func (sc *ServiceCollection) initializeRepositories() error {
	sc.Logger.Info("Initializing repositories")

	var err error
	sc.Repositories, err = repositories.NewCollection(sc.DBManager, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}

	sc.Logger.Info("Repositories initialized")
	return nil
}

func (sc *ServiceCollection) initializeServices() error {
	sc.Logger.Info("Initializing services")

	repos := sc.Repositories
	hasher := NewBcryptHasher(sc.Config.Security.BCryptCost)
	mode := sc.Config.Badges.EvaluationMode

	// Badge engine: statistics come straight from the group and post tables
	provider := badges.NewProvider(repos.Group, repos.Post,
		badges.WithLookbackDays(sc.Config.Badges.LookbackDays))
	engineOpts := []badges.EngineOption{}
	if sc.Metrics != nil {
		engineOpts = append(engineOpts, badges.WithRecorder(sc.Metrics))
	}
	sc.Engine = badges.NewEngine(provider, repos.Badge, sc.Logger.Named("badges"), engineOpts...)

	badgeConfig := DefaultBadgeConfig()
	if sc.Config.Cache.DefaultTTL > 0 {
		badgeConfig.CacheTTL = sc.Config.Cache.DefaultTTL
	}
	sc.BadgeService = NewBadgeService(sc.Engine, repos.Badge, sc.Cache, sc.Logger, badgeConfig)

	sc.GroupService = NewGroupService(
		repos.Group,
		sc.BadgeService,
		sc.Cache,
		hasher,
		sc.EventBus,
		mode,
		sc.Logger,
	)

	sc.PostService = NewPostService(
		repos.Post,
		repos.Group,
		hasher,
		sc.EventBus,
		mode,
		sc.Logger,
	)

	sc.CommentService = NewCommentService(
		repos.Comment,
		repos.Post,
		hasher,
		sc.Logger,
	)

	sc.ImageService = NewImageService(repos.Image, sc.Storage, sc.Config.Uploads.MaxBytes, sc.Logger)

	sc.Logger.Info("All services initialized")
	return nil
}

// initializeBackground wires the event-driven and scheduled badge triggers
func (sc *ServiceCollection) initializeBackground() error {
	if err := SubscribeBadgeEvaluator(sc.EventBus, sc.BadgeService, sc.Config.Badges.EvaluateTimeout, sc.Logger); err != nil {
		return err
	}

	if sc.Config.Badges.SweepEnabled {
		var recorder scheduler.Recorder
		if sc.Metrics != nil {
			recorder = sc.Metrics
		}
		sc.Sweeper = scheduler.NewBadgeSweeper(
			sc.Repositories.Group,
			sc.BadgeService,
			recorder,
			scheduler.SweepConfig{
				Schedule:     sc.Config.Badges.SweepSchedule,
				Concurrency:  sc.Config.Badges.SweepConcurrency,
				BatchSize:    sc.Config.Badges.SweepBatchSize,
				GroupTimeout: sc.Config.Badges.EvaluateTimeout,
			},
			sc.Logger,
		)
	}
	return nil
}

// ===============================
// LIFECYCLE
// ===============================

// Start launches the event workers and the sweep schedule
func (sc *ServiceCollection) Start(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.started {
		return nil
	}
	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	if sc.Sweeper != nil {
		if err := sc.Sweeper.Start(ctx); err != nil {
			_ = sc.EventBus.Stop(ctx)
			return fmt.Errorf("failed to start badge sweeper: %w", err)
		}
	}
	sc.started = true
	return nil
}

// Shutdown stops background work and releases the cache. The database
// manager is owned by the caller.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.Logger.Info("Shutting down service collection")

	var errs []error
	if sc.started {
		if sc.Sweeper != nil {
			if err := sc.Sweeper.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := sc.EventBus.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
		sc.started = false
	}
	if err := sc.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		sc.Logger.Error("Service collection shutdown incomplete", zap.Error(err))
		return err
	}
	sc.Logger.Info("Service collection shutdown complete")
	return nil
}

// ===============================
// HEALTH MONITORING
// ===============================

// HealthCheck reports database, cache and event bus status. Only the
// database makes the whole service unhealthy.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *ServiceHealth {
	health := &ServiceHealth{
		Status:       database.StatusHealthy,
		Version:      appinfo.Version(),
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime).Round(time.Second).String(),
	}

	db := sc.DBManager.Health(ctx)
	dbStatus := ServiceStatus{
		Name:         "database",
		Status:       db.Status,
		ResponseTime: db.ResponseTime.String(),
		Metadata:     db.Details,
	}
	if len(db.Errors) > 0 {
		dbStatus.Error = db.Errors[0]
		health.Issues = append(health.Issues, db.Errors...)
	}
	health.Dependencies["database"] = dbStatus
	if db.Status != database.StatusHealthy {
		health.Status = db.Status
	}

	sc.checkDependency(ctx, health, "cache", sc.Cache.Health)
	sc.checkDependency(ctx, health, "events", func(context.Context) error { return sc.EventBus.Health() })

	return health
}

func (sc *ServiceCollection) checkDependency(ctx context.Context, health *ServiceHealth, name string, check func(context.Context) error) {
	start := time.Now()
	status := ServiceStatus{Name: name, Status: database.StatusHealthy}
	if err := check(ctx); err != nil {
		status.Status = database.StatusDegraded
		status.Error = err.Error()
		health.Issues = append(health.Issues, fmt.Sprintf("%s: %v", name, err))
		if health.Status == database.StatusHealthy {
			health.Status = database.StatusDegraded
		}
	}
	status.ResponseTime = time.Since(start).String()
	health.Dependencies[name] = status
}
