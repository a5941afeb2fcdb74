package badges

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

// memoryLedger is an in-process Ledger with the same atomicity guarantees
// the Postgres implementation provides.
type memoryLedger struct {
	mu      sync.Mutex
	entries map[int64]*Entry
	writes  atomic.Int64
	ensures atomic.Int64
	failAdd error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: make(map[int64]*Entry)}
}

func (l *memoryLedger) EnsureEntry(ctx context.Context, groupID int64) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("ensure entry", err)
	}
	l.ensures.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[groupID]
	if !ok {
		now := time.Now().UTC()
		e = &Entry{GroupID: groupID, Badges: []string{}, CreatedAt: now, UpdatedAt: now}
		l.entries[groupID] = e
	}
	return copyEntry(e), nil
}

func (l *memoryLedger) HasBadge(_ context.Context, groupID int64, badgeID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[groupID]
	if !ok {
		return false, ErrNotFound
	}
	return e.Has(badgeID), nil
}

func (l *memoryLedger) AddBadges(_ context.Context, groupID int64, ids []string) (*Entry, error) {
	if l.failAdd != nil {
		return nil, NewStorageError("add badges", l.failAdd)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	l.writes.Add(1)
	e.Badges = union(e.Badges, ids)
	e.UpdatedAt = time.Now().UTC()
	return copyEntry(e), nil
}

func (l *memoryLedger) GetBadges(_ context.Context, groupID int64) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntry(e), nil
}

func copyEntry(e *Entry) *Entry {
	cp := *e
	cp.Badges = append([]string(nil), e.Badges...)
	return &cp
}

// fakeStore serves both GroupSource and ActivitySource from fixed data.
type fakeStore struct {
	mu       sync.Mutex
	groups   map[int64]*GroupFacts
	posts    map[int64][]fakePost
	groupErr error
}

type fakePost struct {
	createdAt time.Time
	likes     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups: make(map[int64]*GroupFacts),
		posts:  make(map[int64][]fakePost),
	}
}

func (f *fakeStore) addGroup(id int64, createdAt time.Time, capacity int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[id] = &GroupFacts{CreatedAt: createdAt, CapacityMetric: capacity}
}

func (f *fakeStore) addPost(groupID int64, createdAt time.Time, likes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[groupID] = append(f.posts[groupID], fakePost{createdAt: createdAt, likes: likes})
}

func (f *fakeStore) GroupFacts(_ context.Context, groupID int64) (*GroupFacts, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) PostActivity(_ context.Context, groupID int64, since time.Time) (*PostActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &PostActivity{}
	latest := map[time.Time]time.Time{}
	for _, p := range f.posts[groupID] {
		out.PostCount++
		out.TotalLikes += p.likes
		if p.likes > out.MaxPostLikes {
			out.MaxPostLikes = p.likes
		}
		if p.createdAt.Before(since) {
			continue
		}
		day := utcDate(p.createdAt)
		if p.createdAt.After(latest[day]) {
			latest[day] = p.createdAt
		}
	}
	for day, at := range latest {
		out.Days = append(out.Days, DayActivity{Day: day, LatestAt: at})
	}
	return out, nil
}

var errBoom = errors.New("connection reset")

// union appends the ids from add that are missing from base, keeping order
func union(base, add []string) []string {
	out := append([]string{}, base...)
	for _, id := range add {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
