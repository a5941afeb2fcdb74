// file: internal/services/badge_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memorybox/internal/badges"
	"memorybox/internal/cache"
	"memorybox/internal/events"

	"go.uber.org/zap"
)

// BadgeServiceConfig holds badge service configuration
type BadgeServiceConfig struct {
	CacheTTL time.Duration
}

// DefaultBadgeConfig returns default badge service configuration
func DefaultBadgeConfig() *BadgeServiceConfig {
	return &BadgeServiceConfig{CacheTTL: 5 * time.Minute}
}

type badgeService struct {
	engine      *badges.Engine
	ledger      badges.Ledger
	cache       cache.Cache
	generations *cache.Generations
	logger      *zap.Logger
	config      *BadgeServiceConfig
}

// NewBadgeService creates the badge service. cache may be nil.
func NewBadgeService(engine *badges.Engine, ledger badges.Ledger, c cache.Cache, logger *zap.Logger, config *BadgeServiceConfig) BadgeService {
	if config == nil {
		config = DefaultBadgeConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &badgeService{
		engine: engine,
		ledger: ledger,
		cache:  c,
		logger: logger,
		config: config,
	}
	if c != nil {
		svc.generations = cache.NewGenerations(c, 0)
	}
	return svc
}

func badgeGenerationKey(groupID int64) string {
	return fmt.Sprintf("badges:gen:%d", groupID)
}

func badgeViewKey(groupID int64, generation string) string {
	return fmt.Sprintf("badges:group:%d:%s", groupID, generation)
}

// GetGroupBadges returns the ledger contents. A group without a ledger
// entry reads as not found.
func (s *badgeService) GetGroupBadges(ctx context.Context, groupID int64) (*GroupBadges, error) {
	if groupID <= 0 {
		return nil, fromBadgeError(badges.ErrInvalidInput, groupID)
	}

	load := func(ctx context.Context) (*GroupBadges, error) {
		entry, err := s.ledger.GetBadges(ctx, groupID)
		if err != nil {
			return nil, err
		}
		return &GroupBadges{GroupID: groupID, Badges: entry.Badges}, nil
	}

	view, err := s.cachedView(ctx, groupID, load)
	if err != nil {
		return nil, fromBadgeError(err, groupID)
	}
	return view, nil
}

// EvaluateGroup runs the engine for one group
func (s *badgeService) EvaluateGroup(ctx context.Context, groupID int64) (*badges.Result, error) {
	result, err := s.engine.Evaluate(ctx, groupID)
	if err != nil {
		return nil, fromBadgeError(err, groupID)
	}
	if result.Wrote {
		s.forget(ctx, groupID)
	}
	return result, nil
}

// ListDefinitions returns the registry in evaluation order
func (s *badgeService) ListDefinitions() []BadgeDefinition {
	rules := s.engine.Registry().Rules()
	out := make([]BadgeDefinition, 0, len(rules))
	for _, r := range rules {
		out = append(out, BadgeDefinition{ID: r.ID, Label: r.Label})
	}
	return out
}

// cachedView serves the view cached under the group's current generation.
// The generation is taken before load reads the ledger.
func (s *badgeService) cachedView(ctx context.Context, groupID int64, load func(context.Context) (*GroupBadges, error)) (*GroupBadges, error) {
	if s.generations == nil {
		return load(ctx)
	}
	generation, err := s.generations.Current(ctx, badgeGenerationKey(groupID))
	if err != nil {
		s.logger.Warn("Badge cache unavailable, reading ledger", zap.Int64("group_id", groupID), zap.Error(err))
		return load(ctx)
	}
	return cache.GetOrLoad(ctx, s.cache, s.logger, badgeViewKey(groupID, generation), s.config.CacheTTL, load)
}

// forget orphans every cached view of the group's ledger
func (s *badgeService) forget(ctx context.Context, groupID int64) {
	invalidateBadgeViews(ctx, s.cache, s.logger, groupID)
}

func invalidateBadgeViews(ctx context.Context, c cache.Cache, logger *zap.Logger, groupID int64) {
	if c == nil {
		return
	}
	if _, err := cache.NewGenerations(c, 0).Bump(ctx, badgeGenerationKey(groupID)); err != nil {
		logger.Warn("Failed to invalidate badge cache", zap.Int64("group_id", groupID), zap.Error(err))
	}
}

// ===============================
// EVENT TRIGGERS
// ===============================

// triggerEvents are the events after which a group's statistics may have changed
var triggerEvents = []string{
	events.GroupCreated,
	events.GroupLiked,
	events.PostCreated,
	events.PostLiked,
}

// SubscribeBadgeEvaluator registers svc as the evaluator for every trigger event
func SubscribeBadgeEvaluator(bus events.EventBus, svc BadgeService, timeout time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := events.NewEventHandlerFunc("badge-evaluator", func(ctx context.Context, event events.Event) error {
		return evaluateOnEvent(ctx, svc, timeout, logger, event)
	})
	for _, eventType := range triggerEvents {
		if err := bus.Subscribe(eventType, handler); err != nil {
			return fmt.Errorf("failed to subscribe badge evaluator to %s: %w", eventType, err)
		}
	}
	return nil
}

func evaluateOnEvent(ctx context.Context, svc BadgeService, timeout time.Duration, logger *zap.Logger, event events.Event) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	groupID := event.GetGroupID()
	result, err := svc.EvaluateGroup(ctx, groupID)
	switch {
	case err == nil:
		if len(result.Awarded) > 0 {
			logger.Info("Badges awarded after activity",
				zap.String("event_type", event.GetEventType()),
				zap.Int64("group_id", groupID),
				zap.Strings("awarded", result.Awarded),
			)
		}
		return nil
	case errors.Is(err, badges.ErrNotFound), errors.Is(err, badges.ErrInvalidInput):
		// the group was deleted after the event was raised
		logger.Debug("Skipping badge evaluation",
			zap.String("event_type", event.GetEventType()),
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
		return nil
	default:
		return err
	}
}
