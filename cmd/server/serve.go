package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "delegues-backend/internal/api/http"
	"delegues-backend/internal/config"
	"delegues-backend/internal/locations"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/repository/kv"
	"delegues-backend/internal/scheduler"
	"delegues-backend/internal/security"
	"delegues-backend/internal/service"
	"delegues-backend/internal/storage"
)

func newSender(cfg config.EmailConfig) (service.Sender, error) {
	switch cfg.Provider {
	case "sendgrid":
		return service.NewSendGridSender(cfg.SendGridAPIKey, cfg.From, cfg.FromName), nil
	case "log":
		return service.NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

func serveRun(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("Starting delegate registration backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "public_url", cfg.Server.PublicURL)
	logger.Info("Store configuration", "type", cfg.Store.Type, "key_prefix", cfg.Store.KeyPrefix, "pending_ttl", cfg.Store.PendingTTL)
	logger.Info("Email configuration", "provider", cfg.Email.Provider, "workers", cfg.Email.Workers, "queue_size", cfg.Email.QueueSize)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Store
	kvStore, err := storage.Open(ctx, storeConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}
	defer func() {
		if err := kvStore.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	store := kv.NewStore(kvStore, cfg.Store.KeyPrefix)

	// Initialize Scheduler for stores no other process can reach
	maintenance, err := scheduler.ForEmbeddedStore(kvStore, cfg)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if maintenance != nil {
		maintenance.Start()
		defer maintenance.Stop()
	}

	// Initialize Location Directory
	directory, err := locations.Load(cfg.Locations.File)
	if err != nil {
		return err
	}
	logger.Info("Location directory loaded", "file", cfg.Locations.File, "communes", directory.Len())

	// Initialize Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	// Initialize Email Service
	sender, err := newSender(cfg.Email)
	if err != nil {
		return err
	}
	mailQueue := service.NewMailQueue(sender, cfg.Email.Workers, cfg.Email.QueueSize, cfg.Email.SendTimeout, metrics)
	mailQueue.Start()
	defer mailQueue.Stop()
	emailSvc := service.NewEmailService(mailQueue, cfg.Email.Subject)

	// Initialize Services
	registrationSvc := service.NewRegistrationService(
		store.PendingRegistrationRepository,
		store.ReservationRepository,
		directory,
		security.NewTokenGenerator(),
		emailSvc,
		service.RegistrationConfig{PublicURL: cfg.Server.PublicURL, PendingTTL: cfg.Store.PendingTTL},
		metrics,
	)
	confirmationSvc := service.NewConfirmationService(
		store.PendingRegistrationRepository,
		store.SlotRepository,
		store.ReservationRepository,
		metrics,
	)
	capacitySvc := service.NewCapacityService(store.SlotRepository, directory)

	// Set up HTTP server
	var health httpapi.HealthChecker
	if p, ok := kvStore.(storage.Pinger); ok {
		health = p
	}
	router := mux.NewRouter()
	if cfg.Metrics.Enabled {
		httpapi.RegisterMetricsRoute(router, cfg.Metrics.Path, registry)
	}
	httpapi.RegisterRoutes(router, httpapi.NewHandler(registrationSvc, confirmationSvc, capacitySvc, directory, health))

	srv := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	logger.Info("HTTP server stopped. Goodbye!")
	return nil
}
