package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
	"golang.org/x/time/rate"
)

// TokenBucket keeps one x/time/rate limiter per key and forgets keys that
// have been idle for longer than idleTTL.
type TokenBucket struct {
	mu      sync.Mutex
	entries map[string]*bucketEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type TokenBucketOption func(*TokenBucket)

func WithIdleTTL(d time.Duration) TokenBucketOption {
	return func(t *TokenBucket) { t.idleTTL = d }
}

func WithBucketClock(now func() time.Time) TokenBucketOption {
	return func(t *TokenBucket) { t.now = now }
}

func NewTokenBucket(rps float64, burst int, opts ...TokenBucketOption) *TokenBucket {
	t := &TokenBucket{
		entries: make(map[string]*bucketEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TokenBucket) Limit() int { return t.burst }

func (t *TokenBucket) Check(key string) error {
	now := t.now()

	t.mu.Lock()
	ent, ok := t.entries[key]
	if !ok {
		ent = &bucketEntry{lim: rate.NewLimiter(t.rps, t.burst)}
		t.entries[key] = ent
	}
	ent.lastSeen = now
	t.mu.Unlock()

	r := ent.lim.ReserveN(now, 1)
	if !r.OK() {
		return domain.RateLimited(time.Second)
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return nil
	}
	r.CancelAt(now)

	secs := math.Ceil(delay.Seconds())
	return domain.RateLimited(time.Duration(secs) * time.Second)
}

// Cleanup forgets keys not seen within idleTTL.
func (t *TokenBucket) Cleanup() int {
	cutoff := t.now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k, ent := range t.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(t.entries, k)
			removed++
		}
	}
	return removed
}

func (t *TokenBucket) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

var _ ports.RateLimiter = (*TokenBucket)(nil)
