package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

const (
	DefaultClickQueueSize = 1024
	DefaultClickWorkers   = 2

	clickWriteTimeout = 5 * time.Second
)

// ClickRecorder increments click counters on a pool of background workers.
// Record never blocks; write failures are logged and dropped.
type ClickRecorder struct {
	repo  ports.LinkRepository
	queue chan string
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type ClickRecorderOption func(*ClickRecorder)

func WithClickClock(now func() time.Time) ClickRecorderOption {
	return func(c *ClickRecorder) { c.now = now }
}

// NewClickRecorder starts workers goroutines reading from a queue of
// queueSize pending clicks.
func NewClickRecorder(repo ports.LinkRepository, queueSize, workers int, opts ...ClickRecorderOption) *ClickRecorder {
	if queueSize <= 0 {
		queueSize = DefaultClickQueueSize
	}
	if workers <= 0 {
		workers = DefaultClickWorkers
	}

	c := &ClickRecorder{
		repo:  repo,
		queue: make(chan string, queueSize),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.work()
	}
	return c
}

// Record queues one click for code.
func (c *ClickRecorder) Record(code string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		log.Printf("click recorder closed, dropping click for %s", code)
		return
	}

	select {
	case c.queue <- code:
	default:
		log.Printf("click queue full, dropping click for %s", code)
	}
}

// Close stops intake and waits until queued clicks are written.
func (c *ClickRecorder) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *ClickRecorder) work() {
	defer c.wg.Done()
	for code := range c.queue {
		c.write(code)
	}
}

func (c *ClickRecorder) write(code string) {
	// Request contexts are gone by the time this runs.
	ctx, cancel := context.WithTimeout(context.Background(), clickWriteTimeout)
	defer cancel()

	if err := c.repo.IncrementClicks(ctx, code, c.now()); err != nil {
		log.Printf("failed to record click for %s: %v", code, err)
	}
}

var _ ports.ClickRecorder = (*ClickRecorder)(nil)
