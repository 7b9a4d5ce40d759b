package ratelimit

import (
	"context"
	"time"
)

// DefaultCleanupEvery is the janitor period used when none is configured.
const DefaultCleanupEvery = 5 * time.Minute

type cleaner interface {
	Cleanup() int
}

// StartJanitor runs c.Cleanup every interval until ctx is cancelled.
func StartJanitor(ctx context.Context, c cleaner, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}
