package badges

import (
	"context"
	"time"
)

// DefaultLookbackDays covers the widest window used by the default rules.
const DefaultLookbackDays = 7

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

// Provider builds Statistics from a group source and an activity source.
// Nothing is cached; every Snapshot reads the store.
type Provider struct {
	groups       GroupSource
	activity     ActivitySource
	now          Clock
	lookbackDays int
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithClock overrides the time source.
func WithClock(now Clock) ProviderOption {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLookbackDays sets how many days of per-day activity are loaded.
func WithLookbackDays(days int) ProviderOption {
	return func(p *Provider) {
		if days > 0 {
			p.lookbackDays = days
		}
	}
}

// NewProvider creates a statistics provider.
func NewProvider(groups GroupSource, activity ActivitySource, opts ...ProviderOption) *Provider {
	p := &Provider{
		groups:       groups,
		activity:     activity,
		now:          time.Now,
		lookbackDays: DefaultLookbackDays,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot implements StatisticsProvider.
func (p *Provider) Snapshot(ctx context.Context, groupID int64) (*Statistics, error) {
	if err := validateGroupID(groupID); err != nil {
		return nil, err
	}

	facts, err := p.groups.GroupFacts(ctx, groupID)
	if err != nil {
		return nil, NewStorageError("load group", err)
	}
	if facts == nil {
		return nil, ErrNotFound
	}

	now := p.now().UTC()
	since := now.Add(-time.Duration(p.lookbackDays) * 24 * time.Hour)

	activity, err := p.activity.PostActivity(ctx, groupID, since)
	if err != nil {
		return nil, NewStorageError("aggregate posts", err)
	}
	if activity == nil {
		activity = &PostActivity{}
	}

	return &Statistics{
		GroupID:        groupID,
		PostCount:      activity.PostCount,
		TotalLikeCount: activity.TotalLikes,
		MaxPostLikes:   activity.MaxPostLikes,
		GroupCreatedAt: facts.CreatedAt,
		CapacityMetric: facts.CapacityMetric,
		EvaluatedAt:    now,
		LookbackDays:   p.lookbackDays,
		activeDays:     activity.Days,
	}, nil
}
