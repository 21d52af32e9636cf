package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces environment overrides, e.g. DELEGUES_STORE_TYPE.
const envPrefix = "DELEGUES"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Badger    BadgerConfig    `yaml:"badger"`
	Email     EmailConfig     `yaml:"email"`
	Locations LocationsConfig `yaml:"locations"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"SERVER_HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
	// PublicURL prefixes the confirmation links sent by email
	PublicURL       string        `yaml:"public_url"       envconfig:"PUBLIC_URL"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// StoreConfig selects the key-value backend
type StoreConfig struct {
	Type       string        `yaml:"type"        envconfig:"TYPE"` // "memory", "badger" or "postgres"
	KeyPrefix  string        `yaml:"key_prefix"  envconfig:"KEY_PREFIX"`
	PendingTTL time.Duration `yaml:"pending_ttl" envconfig:"PENDING_TTL"` // 0 keeps pending registrations forever
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"     envconfig:"DB_HOST"`
	Port     int    `yaml:"port"     envconfig:"DB_PORT"`
	User     string `yaml:"user"     envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Database string `yaml:"database" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"DB_SSL_MODE"`
}

// BadgerConfig contains embedded store settings
type BadgerConfig struct {
	Dir string `yaml:"dir" envconfig:"BADGER_DIR"` // empty runs in memory
}

// EmailConfig contains confirmation mail settings
type EmailConfig struct {
	Provider       string        `yaml:"provider"         envconfig:"EMAIL_PROVIDER"` // "sendgrid" or "log"
	SendGridAPIKey string        `yaml:"sendgrid_api_key" envconfig:"SENDGRID_API_KEY"`
	From           string        `yaml:"from"             envconfig:"EMAIL_FROM"`
	FromName       string        `yaml:"from_name"        envconfig:"EMAIL_FROM_NAME"`
	Subject        string        `yaml:"subject"          envconfig:"EMAIL_SUBJECT"`
	Workers        int           `yaml:"workers"          envconfig:"EMAIL_WORKERS"`
	QueueSize      int           `yaml:"queue_size"       envconfig:"EMAIL_QUEUE_SIZE"`
	SendTimeout    time.Duration `yaml:"send_timeout"     envconfig:"EMAIL_SEND_TIMEOUT"`
}

// LocationsConfig points at the polling station table
type LocationsConfig struct {
	File string `yaml:"file" envconfig:"LOCATIONS_FILE"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"  envconfig:"LOG_LEVEL"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format" envconfig:"LOG_FORMAT"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PurgeExpired string `yaml:"purge_expired" envconfig:"PURGE_EXPIRED_SCHEDULE"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
	Path    string `yaml:"path"    envconfig:"METRICS_PATH"`
}

// Load reads configuration from a YAML file. An empty path skips the file
// and relies on defaults and environment variables.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables if present
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate fills defaults and checks that the configuration is usable
func (c *Config) Validate() error {
	// Server
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	// Store
	switch c.Store.Type {
	case "":
		c.Store.Type = "memory"
	case "memory", "badger":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("invalid store type: %q", c.Store.Type)
	}
	if c.Store.PendingTTL < 0 {
		return fmt.Errorf("pending_ttl must not be negative")
	}

	// Email
	switch c.Email.Provider {
	case "":
		c.Email.Provider = "log"
	case "log":
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid API key is required")
		}
	default:
		return fmt.Errorf("invalid email provider: %q", c.Email.Provider)
	}
	if c.Email.From == "" {
		c.Email.From = "noreply@localhost"
	}
	if c.Email.Subject == "" {
		c.Email.Subject = "Délégué bureau de vote"
	}
	if c.Email.Workers <= 0 {
		c.Email.Workers = 4
	}
	if c.Email.QueueSize <= 0 {
		c.Email.QueueSize = 100
	}
	if c.Email.SendTimeout == 0 {
		c.Email.SendTimeout = 15 * time.Second
	}

	// Locations
	if c.Locations.File == "" {
		return fmt.Errorf("locations file is required")
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Scheduler
	if c.Scheduler.PurgeExpired == "" {
		c.Scheduler.PurgeExpired = "0 0 * * * *" // hourly
	}

	// Metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
