package services

import (
	"context"
	"log"
	"time"
)

// DefaultPurgeInterval is how often the sweeper deletes expired links.
const DefaultPurgeInterval = 10 * time.Minute

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartSweeper purges expired links every interval until ctx is cancelled.
// It returns immediately; a non-positive interval disables the sweep.
func StartSweeper(ctx context.Context, p purger, every time.Duration) {
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
				if _, err := p.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
					log.Printf("expired link sweep failed: %v", err)
				}
			}
		}
	}()
}
