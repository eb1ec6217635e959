package swap

import (
	"context"
	"log/slog"
	"time"
)

// Sweep reaps expired swaps on a fixed interval until ctx is cancelled.
// Meant to run as a goroutine from main; reap failures are logged and the
// loop keeps going.
func (e *Engine) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.Reap(ctx)
			if err != nil {
				slog.Error("reaping expired swaps", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cancelled expired swaps", "count", n)
			}
		}
	}
}
