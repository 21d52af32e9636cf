package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"delegues-backend/internal/config"
	"delegues-backend/internal/jobs"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/storage"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// ForEmbeddedStore returns a scheduler that maintains store from inside the
// serving process. It returns nil when the store type is shared, in which
// case the cronjob runner owns maintenance.
func ForEmbeddedStore(store storage.Store, cfg *config.Config) (*Scheduler, error) {
	if !storage.Embedded(cfg.Store.Type) {
		return nil, nil
	}
	return NewScheduler(jobs.NewJobRunner(store, cfg))
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	_, err := s.cron.AddFunc(cfg.PurgeExpired, func() {
		_ = s.jobs.PurgeExpiredRegistrations()
	})
	if err != nil {
		logger.Error("Failed to register PurgeExpiredRegistrations job", "schedule", cfg.PurgeExpired, "error", err)
		return err
	}

	logger.Info("All cron jobs registered successfully", "purge_expired", cfg.PurgeExpired)
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if jobs are registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
