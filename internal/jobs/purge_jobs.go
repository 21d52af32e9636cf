package jobs

import (
	"context"
	"fmt"

	"delegues-backend/internal/logger"
	"delegues-backend/internal/storage"
)

// PurgeExpiredRegistrations drops pending registrations whose TTL has
// passed. Expired entries are already invisible to every read; this only
// reclaims their space. Backends without a purge step are skipped.
func (jr *JobRunner) PurgeExpiredRegistrations() error {
	return jr.runWithRecovery("PurgeExpiredRegistrations", func(ctx context.Context) error {
		purger, ok := jr.store.(storage.Purger)
		if !ok {
			logger.Info("Store has no purge step, skipping", "store", fmt.Sprintf("%T", jr.store))
			return nil
		}

		n, err := purger.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("failed to purge expired entries: %w", err)
		}
		logger.Info("Purged expired entries", "count", n)
		return nil
	})
}

// RunJob runs a job by name, for manual execution
func (jr *JobRunner) RunJob(name string) error {
	switch name {
	case "purge-expired":
		return jr.PurgeExpiredRegistrations()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}
