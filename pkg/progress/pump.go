package progress

import (
	"context"
	"time"
)

// DefaultPollInterval is how often front ends poll the queue
const DefaultPollInterval = 100 * time.Millisecond

// Pump polls q every interval and hands each non-empty batch to fn. It
// returns once the queue is closed and fully drained, or when ctx ends.
func Pump(ctx context.Context, q *Queue, interval time.Duration, fn func([]Line)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Read closed before draining so nothing put before Close is lost.
		closed := q.Closed()
		if batch := q.Drain(); len(batch) > 0 {
			fn(batch)
		}
		if closed {
			return
		}

		select {
		case <-ctx.Done():
			if batch := q.Drain(); len(batch) > 0 {
				fn(batch)
			}
			return
		case <-ticker.C:
		}
	}
}
