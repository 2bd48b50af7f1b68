package tagimg

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Run runs a cycle immediately and then every interval until ctx is done.
// Cycles never overlap: ticks that fire while a cycle is running are dropped.
func (b *Bot) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive: %s", interval)
	}
	b.logger.Info("bot started", slog.Duration("interval", interval), slog.Any("tags", b.tags))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		b.RunCycle(ctx)
		// drain a tick that fired during a long cycle
		select {
		case <-ticker.C:
		default:
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			b.logger.Info("bot stopped")
			return nil
		}
	}
}
