package ratelimit

import (
	"sync"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

type windowEntry struct {
	count       int
	windowStart time.Time
}

// FixedWindow allows at most maxRequests calls per key in each window.
type FixedWindow struct {
	mu          sync.Mutex
	entries     map[string]*windowEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

type Option func(*FixedWindow)

func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

func NewFixedWindow(maxRequests int, window time.Duration, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		entries:     make(map[string]*windowEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FixedWindow) Limit() int { return f.maxRequests }
func (f *FixedWindow) Window() time.Duration { return f.window }

// Check records one call for key, or returns a rate limited error without
// touching the counter when the window's budget is spent.
func (f *FixedWindow) Check(key string) error {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	ent, ok := f.entries[key]
	if !ok || now.Sub(ent.windowStart) > f.window {
		f.entries[key] = &windowEntry{count: 1, windowStart: now}
		return nil
	}

	if ent.count >= f.maxRequests {
		retry := ent.windowStart.Add(f.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return domain.RateLimited(retry)
	}

	ent.count++
	return nil
}

// Cleanup drops entries whose window has run out and returns how many were
// removed.
func (f *FixedWindow) Cleanup() int {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for k, ent := range f.entries {
		if now.Sub(ent.windowStart) > f.window {
			delete(f.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

var _ ports.RateLimiter = (*FixedWindow)(nil)
