package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"memorybox/internal/badges"
	"memorybox/internal/cache"
	"memorybox/internal/events"
	"memorybox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type badgeFixture struct {
	store  *memStore
	ledger *memLedger
	cache  cache.Cache
	svc    BadgeService
}

func newBadgeFixture(t *testing.T) *badgeFixture {
	t.Helper()
	store := newMemStore()
	ledger := newMemLedger()
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	engine := badges.NewEngine(badges.NewProvider(memGroups{store}, memPosts{store}), ledger, zap.NewNop())
	return &badgeFixture{
		store:  store,
		ledger: ledger,
		cache:  c,
		svc:    NewBadgeService(engine, ledger, c, zap.NewNop(), nil),
	}
}

func (f *badgeFixture) addGroup(t *testing.T, likes int64, age time.Duration) int64 {
	t.Helper()
	g := &models.Group{Name: "family", PasswordHash: "h:pw"}
	require.NoError(t, memGroups{f.store}.Create(context.Background(), g))
	f.store.groups[g.ID].LikeCount = likes
	f.store.groups[g.ID].CreatedAt = time.Now().UTC().Add(-age)
	_, err := f.ledger.EnsureEntry(context.Background(), g.ID)
	require.NoError(t, err)
	return g.ID
}

func statusOf(err error) int {
	return GetServiceError(err).GetStatusCode()
}

func TestBadgeService_GetGroupBadgesIsCachedUntilAward(t *testing.T) {
	f := newBadgeFixture(t)
	ctx := context.Background()
	id := f.addGroup(t, 0, time.Hour)

	view, err := f.svc.GetGroupBadges(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, view.Badges)

	_, err = f.svc.GetGroupBadges(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ledger.reads)

	f.store.groups[id].LikeCount = 10000
	result, err := f.svc.EvaluateGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{badges.Capacity10000}, result.Awarded)

	view, err = f.svc.GetGroupBadges(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{badges.Capacity10000}, view.Badges)
	assert.Equal(t, 2, f.ledger.reads)
}

// stallingLedger holds the first GetBadges after it has read the ledger
type stallingLedger struct {
	*memLedger
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *stallingLedger) GetBadges(ctx context.Context, groupID int64) (*badges.Entry, error) {
	entry, err := l.memLedger.GetBadges(ctx, groupID)
	l.once.Do(func() {
		close(l.read)
		<-l.release
	})
	return entry, err
}

func TestBadgeService_ReadRacingAnAwardDoesNotPinStaleView(t *testing.T) {
	store := newMemStore()
	ledger := &stallingLedger{memLedger: newMemLedger(), read: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	engine := badges.NewEngine(badges.NewProvider(memGroups{store}, memPosts{store}), ledger, zap.NewNop())
	svc := NewBadgeService(engine, ledger, c, zap.NewNop(), nil)

	f := &badgeFixture{store: store, ledger: ledger.memLedger, cache: c, svc: svc}
	id := f.addGroup(t, 0, 366*24*time.Hour)
	ctx := context.Background()

	before := make(chan *GroupBadges, 1)
	go func() {
		view, err := svc.GetGroupBadges(ctx, id)
		assert.NoError(t, err)
		before <- view
	}()
	<-ledger.read

	// the award commits while the reader still holds the old set
	result, err := svc.EvaluateGroup(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{badges.OneYearOld}, result.Badges)

	close(ledger.release)
	stale := <-before
	require.NotNil(t, stale)
	assert.Empty(t, stale.Badges)

	for i := 0; i < 2; i++ {
		view, err := svc.GetGroupBadges(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, result.Badges, view.Badges)
	}
}

func TestBadgeService_WorksWithoutCache(t *testing.T) {
	store := newMemStore()
	ledger := newMemLedger()
	engine := badges.NewEngine(badges.NewProvider(memGroups{store}, memPosts{store}), ledger, zap.NewNop())
	svc := NewBadgeService(engine, ledger, nil, zap.NewNop(), nil)
	f := &badgeFixture{store: store, ledger: ledger, svc: svc}
	id := f.addGroup(t, 0, 366*24*time.Hour)

	result, err := svc.EvaluateGroup(context.Background(), id)
	require.NoError(t, err)
	view, err := svc.GetGroupBadges(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, result.Badges, view.Badges)
	assert.Equal(t, 1, ledger.reads)
}

func TestBadgeService_EvaluateIsIdempotent(t *testing.T) {
	f := newBadgeFixture(t)
	ctx := context.Background()
	id := f.addGroup(t, 0, 366*24*time.Hour)

	first, err := f.svc.EvaluateGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{badges.OneYearOld}, first.Awarded)

	second, err := f.svc.EvaluateGroup(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, second.Awarded)
	assert.False(t, second.Wrote)
	assert.Equal(t, []string{badges.OneYearOld}, second.Badges)
}

func TestBadgeService_Errors(t *testing.T) {
	f := newBadgeFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetGroupBadges(ctx, 0)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.svc.GetGroupBadges(ctx, 42)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	_, err = f.svc.EvaluateGroup(ctx, 42)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	assert.True(t, errors.Is(err, badges.ErrNotFound))

	_, err = f.svc.EvaluateGroup(ctx, -1)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestBadgeService_ListDefinitions(t *testing.T) {
	f := newBadgeFixture(t)

	defs := f.svc.ListDefinitions()
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		assert.NotEmpty(t, d.Label)
		ids = append(ids, d.ID)
	}
	assert.Equal(t, badges.DefaultRegistry().IDs(), ids)
}

func TestSubscribeBadgeEvaluator(t *testing.T) {
	f := newBadgeFixture(t)
	ctx := context.Background()
	id := f.addGroup(t, 10000, time.Hour)

	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, SubscribeBadgeEvaluator(bus, f.svc, time.Second, zap.NewNop()))

	require.NoError(t, bus.Publish(ctx, events.NewGroupLikedEvent(id, 10000)))

	view, err := f.svc.GetGroupBadges(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{badges.Capacity10000}, view.Badges)

	// events for groups deleted in the meantime are dropped quietly
	assert.NoError(t, bus.Publish(ctx, events.NewPostCreatedEvent(999, 1, time.Now())))
}
