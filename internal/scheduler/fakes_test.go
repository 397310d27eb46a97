package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/publisher"
	"github.com/maheshrc27/postcast/internal/repository"
)

var errStore = errors.New("store unavailable")

type memPosts struct {
	mu           sync.Mutex
	posts        map[string]*models.Post
	saveErr      error
	engagements  map[string]models.Engagement
	listDueCalls int
}

func newMemPosts(posts ...*models.Post) *memPosts {
	m := &memPosts{posts: make(map[string]*models.Post), engagements: make(map[string]models.Engagement)}
	for _, p := range posts {
		cp := *p
		m.posts[p.ID] = &cp
	}
	return m
}

func (m *memPosts) get(id string) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *memPosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *memPosts) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return m.get(id), nil
}

func (m *memPosts) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPosts) CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error) {
	p := m.get(postID)
	return p != nil && p.UserID == userID, nil
}

func (m *memPosts) ListDue(ctx context.Context, now time.Time, maxRetries int) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDueCalls++
	var out []*models.Post
	for _, p := range m.posts {
		if p.Status == models.PostStatusScheduled && !p.ScheduledDate.After(now) && p.RetryCount < maxRetries {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPosts) ListPublishedSince(ctx context.Context, since time.Time, limit int) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, p := range m.posts {
		if p.Status == models.PostStatusPublished && p.PublishedAt != nil && !p.PublishedAt.Before(since) && p.ExternalPostID != "" {
			cp := *p
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPosts) SaveAttempt(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.posts[post.ID]
	if !ok || stored.Status != models.PostStatusScheduled {
		return repository.ErrPostStateChanged
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *memPosts) UpdateEngagement(ctx context.Context, postID string, e models.Engagement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return repository.ErrPostNotFound
	}
	p.Engagement = e
	m.engagements[postID] = e
	return nil
}

func (m *memPosts) Schedule(ctx context.Context, postID string, scheduledDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok || p.Status != models.PostStatusDraft {
		return repository.ErrNotDraft
	}
	p.Status = models.PostStatusScheduled
	p.ScheduledDate = scheduledDate
	return nil
}

func (m *memPosts) Cancel(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok || p.Status.IsTerminal() {
		return repository.ErrNotCancellable
	}
	p.Status = models.PostStatusCancelled
	return nil
}

func (m *memPosts) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts []*models.SocialAccount
	err      error
	lookups  int
}

func (m *memAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) GetActiveByPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.accounts {
		if a.UserID == userID && a.Platform == platform && a.IsActive() {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (m *memAccounts) ListExpiring(ctx context.Context, from, to time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (m *memAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return false, nil
}

func (m *memAccounts) SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
	return nil
}

func (m *memAccounts) Remove(ctx context.Context, id int64) error {
	return nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []*models.PostingHistory
}

func (m *memHistory) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ph
	m.entries = append(m.entries, &cp)
	return int64(len(m.entries)), nil
}

func (m *memHistory) ListByPostID(ctx context.Context, postID string) ([]*models.PostingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PostingHistory
	for _, e := range m.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

// stubPublisher returns scripted outcomes in order; the last one repeats.
type stubPublisher struct {
	mu         sync.Mutex
	platform   models.Platform
	outcomes   []outcome
	calls      int
	block      chan struct{}
	started    chan struct{}
	engagement *models.Engagement
	engErr     error
	engErrs    map[string]error
	panicMsg   string
}

type outcome struct {
	id  string
	err error
}

func (s *stubPublisher) Platform() models.Platform {
	return s.platform
}

func (s *stubPublisher) Publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (*publisher.Result, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}

	o := s.outcomes[len(s.outcomes)-1]
	if n <= len(s.outcomes) {
		o = s.outcomes[n-1]
	}
	if o.err != nil {
		return nil, o.err
	}
	return &publisher.Result{ID: o.id, Platform: s.platform}, nil
}

func (s *stubPublisher) FetchEngagement(ctx context.Context, post *models.Post, account *models.SocialAccount) (*models.Engagement, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.engErr != nil {
		return nil, s.engErr
	}
	if err := s.engErrs[post.ID]; err != nil {
		return nil, err
	}
	if s.engagement == nil {
		return nil, nil
	}
	cp := *s.engagement
	return &cp, nil
}

func (s *stubPublisher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func activeAccount(id, userID int64, platform models.Platform) *models.SocialAccount {
	return &models.SocialAccount{
		ID:            id,
		UserID:        userID,
		Platform:      platform,
		AccountID:     "page-1",
		AccessToken:   "token",
		AccountStatus: models.AccountStatusActive,
	}
}
