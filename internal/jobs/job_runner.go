package jobs

import (
	"context"
	"errors"
	"time"

	"delegues-backend/internal/config"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/storage"
)

var errJobPanicked = errors.New("job panicked")

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store   storage.Store
	config  *config.Config
	timeout time.Duration
}

// NewJobRunner creates a new job runner over the key-value store
func NewJobRunner(store storage.Store, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:   store,
		config:  cfg,
		timeout: 10 * time.Minute,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = errJobPanicked
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}
