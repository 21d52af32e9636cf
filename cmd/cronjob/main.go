package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"delegues-backend/internal/config"
	"delegues-backend/internal/jobs"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/scheduler"
	"delegues-backend/internal/storage"
)

var errEmbeddedStore = errors.New("store is embedded in the server process, which runs its own maintenance")

// openStore opens the shared store the server writes to. Embedded stores
// are refused: a second process would see an empty memory store or fail on
// the badger directory lock.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if storage.Embedded(cfg.Store.Type) {
		return nil, fmt.Errorf("%w: type %q", errEmbeddedStore, cfg.Store.Type)
	}
	return storage.Open(ctx, storage.Config{
		Type:        cfg.Store.Type,
		BadgerDir:   cfg.Badger.Dir,
		PostgresDSN: cfg.GetDatabaseConnectionString(),
	})
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'purge-expired')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting delegate registration cronjob runner...", "log_level", cfg.Log.Level)

	// Initialize Store
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open store", "type", cfg.Store.Type, "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	logger.Info("Store opened", "type", cfg.Store.Type)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.RunJob(*runOnce); err != nil {
			logger.Error("Job failed", "job", *runOnce, "error", err)
			fmt.Printf("Available jobs:\n")
			fmt.Printf("  - purge-expired\n")
			store.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		store.Close()
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
