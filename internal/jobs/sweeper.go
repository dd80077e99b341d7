package jobs

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper deletes expired cache entries every interval until ctx is done.
// It stands in for the River cleanup job when no database is configured.
func RunSweeper(ctx context.Context, expirer Expirer, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := expirer.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("cache sweep completed", "deleted_count", deleted)
			}
		}
	}
}
