package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"delegues-backend/internal/config"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/storage"
)

const programName = "delegues-backend"

var configPath string

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Info(fmt.Sprintf(format, args...), "component", "maxprocs")
	})); err != nil {
		logger.Warn("Failed to set GOMAXPROCS", "error", err)
	}
	return cfg, nil
}

func storeConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Type:        cfg.Store.Type,
		BadgerDir:   cfg.Badger.Dir,
		PostgresDSN: cfg.GetDatabaseConnectionString(),
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Type != storage.TypePostgres {
				logger.Info("Nothing to migrate", "store", cfg.Store.Type)
				return nil
			}
			// OpenPostgres applies pending migrations before returning.
			store, err := storage.OpenPostgres(cmd.Context(), cfg.GetDatabaseConnectionString())
			if err != nil {
				return err
			}
			logger.Info("Database schema is up to date")
			return store.Close()
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Polling station delegate registration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serveRun(cmd.Context())
			},
		},
		migrateCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("%s: %v", programName, err)
		os.Exit(1)
	}
}
