package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete application configuration.
type Configuration struct {
	Database   DatabaseConfig   `yaml:"database"`
	Signaling  SignalingConfig  `yaml:"signaling"`
	Security   SecurityConfig   `yaml:"security"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Ops        OpsConfig        `yaml:"ops"`
}

// DatabaseConfig describes how Store reaches the relational database.
type DatabaseConfig struct {
	Host     string     `yaml:"host"`
	Port     int        `yaml:"port"`
	Database string     `yaml:"database"`
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	Pool     PoolConfig `yaml:"pool"`
}

// PoolConfig bounds Store's connection pool, per spec.md §4.1/§5.
type PoolConfig struct {
	MaxConns       int           `yaml:"max_conns"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// SignalingConfig configures SigningRelay (C5).
type SignalingConfig struct {
	AdminPublicKey string `yaml:"admin_public_key"`
}

// RetryConfig represents retry settings for transient Store failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CircuitBreakerConfig represents circuit breaker settings guarding Store
// connection acquisition.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// SecurityConfig represents security settings.
type SecurityConfig struct {
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// MonitoringConfig represents monitoring settings.
type MonitoringConfig struct {
	Metrics      MetricsConfig      `yaml:"metrics"`
	HealthChecks HealthChecksConfig `yaml:"health_checks"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// MetricsConfig represents metrics settings.
type MetricsConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Prometheus   bool              `yaml:"prometheus"`
	CustomLabels map[string]string `yaml:"custom_labels"`
}

// HealthChecksConfig represents health check settings.
type HealthChecksConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
	Format     string `yaml:"format"`

	// FilePath, if set, rotates logs to disk via pkg/utils's LogRotator
	// instead of writing to stdout.
	FilePath    string `yaml:"file_path"`
	MaxSizeMB   int64  `yaml:"max_size_mb"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	MaxBackups  int    `yaml:"max_backups"`
	CompressOld bool   `yaml:"compress_old"`
}

// OpsConfig configures the health/status/metrics/signal HTTP surface.
type OpsConfig struct {
	Address string `yaml:"address"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "docvfs",
			User:     "docvfs",
			Password: "",
			Pool: PoolConfig{
				MaxConns:       20,
				IdleTimeout:    30 * time.Second,
				ConnectTimeout: 2 * time.Second,
			},
		},
		Signaling: SignalingConfig{
			AdminPublicKey: "",
		},
		Security: SecurityConfig{
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   1 * time.Second,
				MaxDelay:    30 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          60 * time.Second,
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:    true,
				Prometheus: true,
				CustomLabels: map[string]string{
					"service": "docvfs",
				},
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  true,
				Interval: 30 * time.Second,
				Timeout:  5 * time.Second,
			},
			Logging: LoggingConfig{
				Level:      "INFO",
				Structured: true,
				Format:     "json",
			},
		},
		Ops: OpsConfig{
			Address: ":8080",
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables, overriding
// whatever is already set. Matches spec.md §6.3's required variable names.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("POSTGRES_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("POSTGRES_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Database.Port = port
		}
	}
	if val := os.Getenv("POSTGRES_DB"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("POSTGRES_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("ADMIN_PUBLIC_KEY"); val != "" {
		c.Signaling.AdminPublicKey = val
	}

	if val := os.Getenv("DOCVFS_POOL_MAX_CONNS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Database.Pool.MaxConns = n
		}
	}
	if val := os.Getenv("DOCVFS_POOL_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Database.Pool.IdleTimeout = d
		}
	}
	if val := os.Getenv("DOCVFS_POOL_CONNECT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Database.Pool.ConnectTimeout = d
		}
	}
	if val := os.Getenv("DOCVFS_OPS_ADDRESS"); val != "" {
		c.Ops.Address = val
	}
	if val := os.Getenv("DOCVFS_LOG_LEVEL"); val != "" {
		c.Monitoring.Logging.Level = val
	}
	if val := os.Getenv("DOCVFS_LOG_FILE"); val != "" {
		c.Monitoring.Logging.FilePath = val
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration. Fails with ConfigMissing-equivalent
// errors when required settings are absent, per spec.md §4.1.
func (c *Configuration) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Pool.MaxConns <= 0 {
		return fmt.Errorf("database.pool.max_conns must be greater than 0")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Monitoring.Logging.Level == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid logging level: %s (must be one of: %s)",
			c.Monitoring.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// DSN returns the libpq-style connection string pgxpool expects.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		d.Host, d.Port, d.Database, d.User, d.Password)
}
