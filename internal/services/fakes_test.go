package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"memorybox/internal/badges"
	"memorybox/internal/events"
	"memorybox/internal/models"
	"memorybox/internal/storage"

	"golang.org/x/exp/slices"
)

// plainHasher keeps tests fast; bcrypt is covered in passwords_test.go
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "h:" + pw, nil }

func (plainHasher) Compare(hash, pw string) (bool, error) { return hash == "h:"+pw, nil }

// ===============================
// REPOSITORIES
// ===============================

type memStore struct {
	mu       sync.Mutex
	groups   map[int64]*models.Group
	posts    map[int64]*models.Post
	comments map[int64]*models.Comment
	images   []*models.Image
	nextID   int64
	failList error
}

func newMemStore() *memStore {
	return &memStore{
		groups:   make(map[int64]*models.Group),
		posts:    make(map[int64]*models.Post),
		comments: make(map[int64]*models.Comment),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memGroups struct{ *memStore }

func (r memGroups) Create(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.ID = r.id()
	g.CreatedAt = time.Now().UTC()
	cp := *g
	r.groups[g.ID] = &cp
	return nil
}

func (r memGroups) GetByID(_ context.Context, id int64) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r memGroups) List(_ context.Context, p models.GroupListParams) ([]*models.Group, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, 0, r.failList
	}
	var out []*models.Group
	for _, g := range r.groups {
		if p.Keyword != "" && !strings.Contains(strings.ToLower(g.Name), strings.ToLower(p.Keyword)) {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r memGroups) Update(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *g
	r.groups[g.ID] = &cp
	return nil
}

func (r memGroups) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.groups, id)
	return nil
}

func (r memGroups) IncrementLikes(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	g.LikeCount++
	return g.LikeCount, nil
}

func (r memGroups) ListIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	return nil, errors.New("not used")
}

func (r memGroups) GroupFacts(_ context.Context, id int64) (*badges.GroupFacts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	return &badges.GroupFacts{CreatedAt: g.CreatedAt, CapacityMetric: g.LikeCount}, nil
}

type memPosts struct{ *memStore }

func (r memPosts) Create(_ context.Context, p *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[p.GroupID]
	if !ok {
		return sql.ErrNoRows
	}
	p.ID = r.id()
	p.CreatedAt = time.Now().UTC()
	cp := *p
	r.posts[p.ID] = &cp
	g.PostCount++
	return nil
}

func (r memPosts) GetByID(_ context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r memPosts) ListByGroup(_ context.Context, params models.PostListParams) ([]*models.Post, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.GroupID == params.GroupID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r memPosts) Update(_ context.Context, p *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r memPosts) Delete(_ context.Context, p *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return sql.ErrNoRows
	}
	delete(r.posts, p.ID)
	if g, ok := r.groups[p.GroupID]; ok {
		g.PostCount--
	}
	return nil
}

func (r memPosts) IncrementLikes(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	p.LikeCount++
	return p.LikeCount, nil
}

func (r memPosts) PostActivity(_ context.Context, groupID int64, since time.Time) (*badges.PostActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := &badges.PostActivity{}
	for _, p := range r.posts {
		if p.GroupID != groupID {
			continue
		}
		a.PostCount++
		a.TotalLikes += p.LikeCount
		a.MaxPostLikes = max(a.MaxPostLikes, p.LikeCount)
		if !p.CreatedAt.Before(since) {
			a.Days = append(a.Days, badges.DayActivity{Day: p.CreatedAt, LatestAt: p.CreatedAt})
		}
	}
	return a, nil
}

type memComments struct{ *memStore }

func (r memComments) Create(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[c.PostID]
	if !ok {
		return sql.ErrNoRows
	}
	c.ID = r.id()
	c.CreatedAt = time.Now().UTC()
	cp := *c
	r.comments[c.ID] = &cp
	p.CommentCount++
	return nil
}

func (r memComments) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memComments) ListByPost(_ context.Context, postID int64, _ models.PaginationParams) ([]*models.Comment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r memComments) Update(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[c.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r memComments) Delete(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[c.ID]; !ok {
		return sql.ErrNoRows
	}
	delete(r.comments, c.ID)
	if p, ok := r.posts[c.PostID]; ok {
		p.CommentCount--
	}
	return nil
}

type memImages struct {
	*memStore
	fail error
}

func (r *memImages) Create(_ context.Context, img *models.Image) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	img.ID = r.id()
	r.images = append(r.images, img)
	return nil
}

// ===============================
// BADGE LEDGER
// ===============================

type memLedger struct {
	mu      sync.Mutex
	entries map[int64][]string
	reads   int
}

func newMemLedger() *memLedger {
	return &memLedger{entries: make(map[int64][]string)}
}

func (l *memLedger) EnsureEntry(_ context.Context, groupID int64) (*badges.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[groupID]; !ok {
		l.entries[groupID] = []string{}
	}
	return &badges.Entry{GroupID: groupID, Badges: append([]string{}, l.entries[groupID]...)}, nil
}

func (l *memLedger) HasBadge(_ context.Context, groupID int64, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.entries[groupID]
	if !ok {
		return false, badges.ErrNotFound
	}
	for _, b := range held {
		if b == id {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) AddBadges(_ context.Context, groupID int64, ids []string) (*badges.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.entries[groupID]
	if !ok {
		return nil, badges.ErrNotFound
	}
	for _, id := range ids {
		if !slices.Contains(held, id) {
			held = append(held, id)
		}
	}
	l.entries[groupID] = held
	return &badges.Entry{GroupID: groupID, Badges: append([]string{}, l.entries[groupID]...)}, nil
}

func (l *memLedger) GetBadges(_ context.Context, groupID int64) (*badges.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	held, ok := l.entries[groupID]
	if !ok {
		return nil, badges.ErrNotFound
	}
	return &badges.Entry{GroupID: groupID, Badges: append([]string{}, held...)}, nil
}

// ===============================
// EVENT BUS
// ===============================

// recordingBus captures published events without dispatching them
type recordingBus struct {
	mu     sync.Mutex
	sync   []events.Event
	async  []events.Event
	failAs error
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync = append(b.sync, e)
	return nil
}

func (b *recordingBus) PublishAsync(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAs != nil {
		return b.failAs
	}
	b.async = append(b.async, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.EventHandler) error        { return nil }
func (b *recordingBus) SubscribePattern(string, events.EventHandler) error { return nil }
func (b *recordingBus) Unsubscribe(string, events.EventHandler) error      { return nil }
func (b *recordingBus) Start(context.Context) error                        { return nil }
func (b *recordingBus) Stop(context.Context) error                         { return nil }
func (b *recordingBus) Health() error                                      { return nil }
func (b *recordingBus) Stats() *events.EventBusStats                       { return &events.EventBusStats{} }

func (b *recordingBus) asyncTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.async))
	for _, e := range b.async {
		out = append(out, e.GetEventType())
	}
	return out
}

// ===============================
// FILE STORAGE
// ===============================

type memStorage struct {
	saved   map[string][]byte
	deleted []string
	failErr error
}

func (s *memStorage) Save(_ context.Context, u *storage.Upload) (*storage.Object, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	key := "img-1" + u.Ext
	buf := make([]byte, u.Size)
	n, _ := u.Reader.Read(buf)
	s.saved[key] = buf[:n]
	return &storage.Object{
		Key:         key,
		URL:         "http://localhost:3000/uploads/" + key,
		Provider:    storage.ProviderLocal,
		ContentType: u.ContentType,
		Size:        int64(n),
	}, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStorage) Provider() string { return storage.ProviderLocal }
