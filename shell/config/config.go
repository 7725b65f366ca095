package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverPGX    = "pgx"
	DriverSQL    = "sql"
	DriverSQLX   = "sqlx"
)

// maxRetryAttempts bounds retry.max_attempts, the waits between attempts are capped by retry.max_delay.
const maxRetryAttempts = 20

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Retry         RetryConfig         `yaml:"retry"`
	Observability ObservabilityConfig `yaml:"observability"`
	HTTP          HTTPConfig          `yaml:"http"`
}

// DatabaseConfig selects and tunes the storage backend.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	IsolationLevel  string        `yaml:"isolation_level"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RetryConfig configures how the shell resubmits operations that lost a race.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	JitterFactor float64       `yaml:"jitter_factor"`
}

// ObservabilityConfig configures the OpenTelemetry exporters.
type ObservabilityConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ServiceName    string        `yaml:"service_name"`
	TraceEndpoint  string        `yaml:"trace_endpoint"`
	MetricEndpoint string        `yaml:"metric_endpoint"`
	MetricInterval time.Duration `yaml:"metric_interval"`
}

// HTTPConfig configures the HTTP surface.
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Load reads the configuration. An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration: a local SQLite file and text logging.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			SQLitePath:      "library.db",
			MaxOpenConns:    8,
			MinConns:        2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnectTimeout:  5 * time.Second,
			IsolationLevel:  loans.ReadCommitted.String(),
			AutoMigrate:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Retry: RetryConfig{
			MaxAttempts:  6,
			BaseDelay:    10 * time.Millisecond,
			MaxDelay:     time.Second,
			JitterFactor: 0.3,
		},
		Observability: ObservabilityConfig{
			Enabled:        false,
			ServiceName:    "library-loans",
			TraceEndpoint:  "localhost:4317",
			MetricEndpoint: "localhost:4317",
			MetricInterval: 15 * time.Second,
		},
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LIBRARY_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}

	if v := os.Getenv("LIBRARY_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("LIBRARY_DATABASE_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LIBRARY_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LIBRARY_HTTP_PORT: %w", ErrInvalidConfig, err)
		}

		cfg.HTTP.Port = port
	}

	if v := os.Getenv("LIBRARY_OTEL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LIBRARY_OTEL_ENABLED: %w", ErrInvalidConfig, err)
		}

		cfg.Observability.Enabled = enabled
	}

	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("%w: database.sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}

	case DriverPGX, DriverSQL, DriverSQLX:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for the %s driver", ErrInvalidConfig, c.Database.Driver)
		}

	default:
		return fmt.Errorf("%w: unknown database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	if _, err := loans.ParseIsolationLevel(c.Database.IsolationLevel); err != nil {
		return fmt.Errorf("%w: database.isolation_level: %w", ErrInvalidConfig, err)
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("%w: database.max_open_conns must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: unknown logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > maxRetryAttempts {
		return fmt.Errorf("%w: retry.max_attempts must be between 1 and %d", ErrInvalidConfig, maxRetryAttempts)
	}

	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("%w: retry.base_delay must not be negative", ErrInvalidConfig)
	}

	if c.Retry.MaxDelay <= 0 {
		return fmt.Errorf("%w: retry.max_delay must be positive", ErrInvalidConfig)
	}

	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		return fmt.Errorf("%w: retry.jitter_factor must be between 0.0 and 1.0", ErrInvalidConfig)
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port must be between 1 and 65535", ErrInvalidConfig)
	}

	return nil
}

// Isolation returns the parsed isolation level. Validate guarantees it parses.
func (c DatabaseConfig) Isolation() loans.IsolationLevel {
	level, _ := loans.ParseIsolationLevel(c.IsolationLevel)
	return level
}

// Address returns host:port for the HTTP listener.
func (c HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
