package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// Expirer deletes expired geocoding cache entries and reports how many went.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupGeocodingCacheArgs defines the job for cleaning expired geocoding cache entries.
type CleanupGeocodingCacheArgs struct{}

func (CleanupGeocodingCacheArgs) Kind() string { return JobKindGeocodingCacheCleanup }

// CleanupGeocodingCacheWorker removes expired forward and reverse cache entries
// so the cache tables stay bounded.
type CleanupGeocodingCacheWorker struct {
	river.WorkerDefaults[CleanupGeocodingCacheArgs]
	Expirer Expirer
	Logger  *slog.Logger
}

func (CleanupGeocodingCacheWorker) Kind() string { return JobKindGeocodingCacheCleanup }

// Timeout bounds a single sweep.
func (CleanupGeocodingCacheWorker) Timeout(*river.Job[CleanupGeocodingCacheArgs]) time.Duration {
	return 2 * time.Minute
}

func (w CleanupGeocodingCacheWorker) Work(ctx context.Context, job *river.Job[CleanupGeocodingCacheArgs]) error {
	if w.Expirer == nil {
		return fmt.Errorf("geocoding cache not configured")
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	deleted, err := w.Expirer.DeleteExpired(ctx)
	if err != nil {
		logger.Error("geocoding cache cleanup failed", "attempt", job.Attempt, "error", err)
		return fmt.Errorf("delete expired cache entries: %w", err)
	}

	logger.Info("geocoding cache cleanup completed",
		"deleted_count", deleted,
		"duration_seconds", time.Since(start).Seconds(),
		"attempt", job.Attempt,
	)
	return nil
}
