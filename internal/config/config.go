package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Supported storage drivers.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the configuration for the character service
// Environment variables are automatically parsed from CHARSTORE_ prefix
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort        int    `envconfig:"HTTP_PORT" default:"5000"`
	CORSAllowOrigin string `envconfig:"CORS_ALLOW_ORIGIN" default:"*"`

	// Storage driver: json | sqlite | postgres
	DBDriver string `envconfig:"DB_DRIVER" default:"json"`

	// JSON file store
	IndexFile   string `envconfig:"INDEX_FILE" default:"index_file.json"`
	DetailsFile string `envconfig:"DETAILS_FILE" default:"details_file.json"`
	LockFile    string `envconfig:"LOCK_FILE" default:""`
	StrictLoad  bool   `envconfig:"STRICT_LOAD" default:"false"`

	LockTimeoutSeconds int `envconfig:"LOCK_TIMEOUT_SECONDS" default:"5"`

	// Relational stores
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"charstore.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Images
	ImageDir       string `envconfig:"IMAGE_DIR" default:"images"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// Health
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates DBDriver and derives values left empty.
func (c *Config) ResolveDefaults() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver == "" {
		c.DBDriver = DriverJSON
	}

	switch c.DBDriver {
	case DriverJSON:
		if c.IndexFile == "" || c.DetailsFile == "" {
			return fmt.Errorf("INDEX_FILE and DETAILS_FILE are required when DB_DRIVER=json")
		}
		if c.IndexFile == c.DetailsFile {
			return fmt.Errorf("INDEX_FILE and DETAILS_FILE must differ")
		}
		if c.LockFile == "" {
			c.LockFile = c.IndexFile + ".lock"
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with CHARSTORE_
// Example: CHARSTORE_HTTP_PORT, CHARSTORE_DB_DRIVER
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CHARSTORE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("index_file", cfg.IndexFile).
		Str("details_file", cfg.DetailsFile).
		Bool("strict_load", cfg.StrictLoad).
		Str("image_dir", cfg.ImageDir).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing, rooted at dir.
func NewForTesting(dir string) *Config {
	cfg := &Config{
		Environment:               EnvTesting,
		HTTPPort:                  5000,
		CORSAllowOrigin:           "*",
		DBDriver:                  DriverJSON,
		IndexFile:                 dir + "/index_file.json",
		DetailsFile:               dir + "/details_file.json",
		LockTimeoutSeconds:        5,
		SQLitePath:                dir + "/charstore.db",
		ImageDir:                  dir + "/images",
		MaxUploadBytes:            1 << 20,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
	}
	_ = cfg.ResolveDefaults()
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// LockTimeout returns the lock acquisition timeout for the JSON store.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}
