package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
)

// memRepo is an in-memory LinkRepository used by the service tests.
type memRepo struct {
	mu     sync.Mutex
	byCode map[string]*domain.ShortLink

	// createErrs are returned, in order, by the next Create calls.
	createErrs []error
	failIncr   error
	existsErr  error
	increments int
}

func newMemRepo() *memRepo {
	return &memRepo{byCode: make(map[string]*domain.ShortLink)}
}

func (r *memRepo) Create(_ context.Context, link *domain.ShortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := r.byCode[link.Code]; ok {
		return domain.ErrConflict
	}
	cp := *link
	r.byCode[link.Code] = &cp
	return nil
}

func (r *memRepo) GetByCode(_ context.Context, code string) (*domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byCode[code]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byCode {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.byCode[code]
	return ok, nil
}

func (r *memRepo) IncrementClicks(_ context.Context, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIncr != nil {
		return r.failIncr
	}
	l, ok := r.byCode[code]
	if !ok {
		return domain.ErrNotFound
	}
	l.ClickCount++
	l.UpdatedAt = at
	r.increments++
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, l := range r.byCode {
		if l.ID == id {
			delete(r.byCode, code)
			return nil
		}
	}
	return nil
}

func (r *memRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for code, l := range r.byCode {
		if l.ExpiresAt != nil && l.ExpiresAt.Before(before) {
			delete(r.byCode, code)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) ownerLinks(ownerID string) []domain.ShortLink {
	var out []domain.ShortLink
	for _, l := range r.byCode {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.ownerLinks(ownerID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memRepo) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.ownerLinks(ownerID))), nil
}

func (r *memRepo) Stats(_ context.Context) (*domain.LinkStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &domain.LinkStats{TotalLinks: int64(len(r.byCode))}
	for _, l := range r.byCode {
		st.TotalClicks += l.ClickCount
	}
	if st.TotalLinks > 0 {
		st.AvgClicks = float64(st.TotalClicks) / float64(st.TotalLinks)
	}
	return st, nil
}

func (r *memRepo) Dump(_ context.Context) ([]domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ShortLink
	for _, l := range r.byCode {
		out = append(out, *l)
	}
	return out, nil
}

func (r *memRepo) Ping(context.Context) error { return nil }

func (r *memRepo) clicksFor(code string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.byCode[code]; ok {
		return l.ClickCount
	}
	return -1
}

// syncRecorder writes clicks inline so tests can assert on counts directly.
type syncRecorder struct {
	repo  *memRepo
	codes []string
}

func (s *syncRecorder) Record(code string) {
	s.codes = append(s.codes, code)
	_ = s.repo.IncrementClicks(context.Background(), code, time.Now())
}

// memCache is a LinkCache backed by a map.
type memCache struct {
	mu      sync.Mutex
	links   map[string]domain.ShortLink
	ttls    map[string]time.Duration
	gets    int
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{links: make(map[string]domain.ShortLink), ttls: make(map[string]time.Duration)}
}

func (c *memCache) Get(_ context.Context, code string) (*domain.ShortLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, errors.New("cache unavailable")
	}
	l, ok := c.links[code]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (c *memCache) Set(_ context.Context, link *domain.ShortLink, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[link.Code] = *link
	c.ttls[link.Code] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.links, code)
	delete(c.ttls, code)
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sequenceGenerator returns the given codes in order, then repeats the last.
func sequenceGenerator(codes ...string) (CodeGenerator, *int) {
	calls := 0
	return func(int) (string, error) {
		i := calls
		calls++
		if i >= len(codes) {
			i = len(codes) - 1
		}
		return codes[i], nil
	}, &calls
}
