package system

import (
	"context"
	"time"
)

// runPoller calls poll immediately and then every interval until ctx is done.
func runPoller(ctx context.Context, interval time.Duration, poll func(context.Context)) {
	poll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll(ctx)
		}
	}
}
