package badges

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(store *fakeStore, ledger *memoryLedger) *Engine {
	provider := NewProvider(store, store, WithClock(func() time.Time { return fixedNow }))
	return NewEngine(provider, ledger, zap.NewNop())
}

func TestEvaluate_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *fakeStore)
		want  []string
	}{
		{
			name: "twenty posts only",
			setup: func(s *fakeStore) {
				s.addGroup(1, fixedNow.Add(-48*time.Hour), 100)
				days := []time.Duration{0, 24 * time.Hour, 48 * time.Hour}
				for i := 0; i < 25; i++ {
					likes := int64(2)
					s.addPost(1, fixedNow.Add(-days[i%3]-time.Minute), likes)
				}
			},
			want: []string{TwentyPosts},
		},
		{
			name: "one year old without posts",
			setup: func(s *fakeStore) {
				s.addGroup(1, fixedNow.Add(-366*24*time.Hour), 0)
			},
			want: []string{OneYearOld},
		},
		{
			name: "single post carries all likes",
			setup: func(s *fakeStore) {
				s.addGroup(1, fixedNow.Add(-time.Hour), 0)
				s.addPost(1, fixedNow.Add(-time.Minute), 10000)
			},
			want: []string{TotalLikes10000, SinglePost10000Likes},
		},
		{
			name: "capacity metric",
			setup: func(s *fakeStore) {
				s.addGroup(1, fixedNow.Add(-time.Hour), 10000)
			},
			want: []string{Capacity10000},
		},
		{
			name: "seven day streak",
			setup: func(s *fakeStore) {
				s.addGroup(1, fixedNow.Add(-30*24*time.Hour), 0)
				for d := 0; d < 7; d++ {
					s.addPost(1, fixedNow.Add(-time.Duration(d)*24*time.Hour), 0)
				}
			},
			want: []string{SevenDayStreak},
		},
		{
			name: "nothing qualifies",
			setup: func(s *fakeStore) {
				s.addGroup(1, fixedNow, 0)
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.setup(store)
			ledger := newMemoryLedger()

			result, err := newTestEngine(store, ledger).Evaluate(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Badges)
			assert.Equal(t, len(tt.want) > 0, result.Wrote)
		})
	}
}

func TestEvaluate_ThresholdExactness(t *testing.T) {
	for _, tc := range []struct {
		posts int
		want  bool
	}{{19, false}, {20, true}} {
		store := newFakeStore()
		store.addGroup(1, fixedNow.Add(-time.Hour), 0)
		for i := 0; i < tc.posts; i++ {
			store.addPost(1, fixedNow.Add(-time.Minute), 0)
		}

		result, err := newTestEngine(store, newMemoryLedger()).Evaluate(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, contains(result.Badges, TwentyPosts), "posts=%d", tc.posts)
	}
}

func TestEvaluate_IdempotentSecondCallDoesNotWrite(t *testing.T) {
	store := newFakeStore()
	store.addGroup(1, fixedNow.Add(-400*24*time.Hour), 0)
	ledger := newMemoryLedger()
	engine := newTestEngine(store, ledger)

	first, err := engine.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, first.Wrote)
	require.EqualValues(t, 1, ledger.writes.Load())

	second, err := engine.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, second.Wrote)
	assert.Empty(t, second.Awarded)
	assert.Equal(t, first.Badges, second.Badges)
	assert.EqualValues(t, 1, ledger.writes.Load())
}

func TestEvaluate_Monotonic(t *testing.T) {
	store := newFakeStore()
	store.addGroup(1, fixedNow.Add(-time.Hour), 0)
	ledger := newMemoryLedger()
	engine := newTestEngine(store, ledger)

	var previous []string
	for i := 0; i < 25; i++ {
		store.addPost(1, fixedNow.Add(-time.Minute), 500)
		result, err := engine.Evaluate(context.Background(), 1)
		require.NoError(t, err)
		for _, id := range previous {
			assert.Contains(t, result.Badges, id)
		}
		previous = result.Badges
	}
	assert.ElementsMatch(t, []string{TwentyPosts, TotalLikes10000}, previous)
}

func TestEvaluate_ConcurrentConvergence(t *testing.T) {
	store := newFakeStore()
	store.addGroup(7, fixedNow.Add(-400*24*time.Hour), 20000)
	for i := 0; i < 20; i++ {
		store.addPost(7, fixedNow.Add(-time.Minute), 1)
	}
	ledger := newMemoryLedger()
	engine := newTestEngine(store, ledger)

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Evaluate(context.Background(), 7); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entry, err := ledger.GetBadges(context.Background(), 7)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{TwentyPosts, OneYearOld, Capacity10000}, entry.Badges)
	assert.Len(t, entry.Badges, 3)
}

func TestEvaluate_GroupNotFoundSkipsLedger(t *testing.T) {
	ledger := newMemoryLedger()
	_, err := newTestEngine(newFakeStore(), ledger).Evaluate(context.Background(), 99)

	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 0, ledger.ensures.Load())
	assert.EqualValues(t, 0, ledger.writes.Load())
}

func TestEvaluate_InvalidGroupID(t *testing.T) {
	store := newFakeStore()
	store.groupErr = errors.New("must not be called")

	_, err := newTestEngine(store, newMemoryLedger()).Evaluate(context.Background(), 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluate_StorageFailuresPropagate(t *testing.T) {
	t.Run("provider", func(t *testing.T) {
		store := newFakeStore()
		store.groupErr = errBoom
		_, err := newTestEngine(store, newMemoryLedger()).Evaluate(context.Background(), 1)
		require.True(t, IsStorageFailure(err))
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("ledger", func(t *testing.T) {
		store := newFakeStore()
		store.addGroup(1, fixedNow.Add(-400*24*time.Hour), 0)
		ledger := newMemoryLedger()
		ledger.failAdd = errBoom

		_, err := newTestEngine(store, ledger).Evaluate(context.Background(), 1)
		require.True(t, IsStorageFailure(err))

		entry, err := ledger.GetBadges(context.Background(), 1)
		require.NoError(t, err)
		assert.Empty(t, entry.Badges)
	})
}

func TestEvaluate_CancelledContext(t *testing.T) {
	store := newFakeStore()
	store.addGroup(1, fixedNow, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(store, newMemoryLedger()).Evaluate(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGetBadgesRoundTrip(t *testing.T) {
	store := newFakeStore()
	store.addGroup(1, fixedNow.Add(-400*24*time.Hour), 0)
	store.addPost(1, fixedNow.Add(-time.Minute), 10000)
	ledger := newMemoryLedger()
	engine := newTestEngine(store, ledger)

	var last *Result
	for i := 0; i < 5; i++ {
		r, err := engine.Evaluate(context.Background(), 1)
		require.NoError(t, err)
		last = r
	}

	entry, err := ledger.GetBadges(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, last.Badges, entry.Badges)
	assert.Equal(t, []string{OneYearOld, TotalLikes10000, SinglePost10000Likes}, entry.Badges)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes []string
	awarded  []string
}

func (r *countingRecorder) ObserveEvaluation(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) ObserveAwards(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awarded = append(r.awarded, ids...)
}

func TestEvaluate_RecordsOutcomes(t *testing.T) {
	store := newFakeStore()
	store.addGroup(1, fixedNow.Add(-400*24*time.Hour), 0)
	rec := &countingRecorder{}
	provider := NewProvider(store, store, WithClock(func() time.Time { return fixedNow }))
	engine := NewEngine(provider, newMemoryLedger(), zap.NewNop(), WithRecorder(rec))

	_, _ = engine.Evaluate(context.Background(), 1)
	_, _ = engine.Evaluate(context.Background(), 1)
	_, _ = engine.Evaluate(context.Background(), 2)

	assert.Equal(t, []string{OutcomeAwarded, OutcomeUnchanged, OutcomeNotFound}, rec.outcomes)
	assert.Equal(t, []string{OneYearOld}, rec.awarded)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
