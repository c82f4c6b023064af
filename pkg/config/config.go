package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/celldb/celldb/pkg/observability"
	"github.com/celldb/celldb/pkg/sheetstore"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       sheetstore.Config   `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
	Stats         StatsConfig         `yaml:"stats"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server on a separate port for probes.
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig holds rate limiting settings. A non-empty RedisURL
// selects the distributed limiter.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Burst             int    `yaml:"burst"`
	RedisURL          string `yaml:"redis_url"`
	RedisPassword     string `yaml:"redis_password"`
	RedisDB           int    `yaml:"redis_db"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
}

// StatsConfig holds the inventory gauge refresh schedule.
type StatsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: sheetstore.DefaultConfig(),
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
			CacheSize:  1024,
			CacheTTL:   time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 300,
			Burst:             50,
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			LogLevelName:   "info",
			MetricsEnabled: true,
		},
		Stats: StatsConfig{
			Enabled:  true,
			Schedule: "@every 1m",
		},
	}
}

// LoadConfig builds the configuration: defaults, then the optional YAML
// file, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CELLDB_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = observability.ParseLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("CELLDB_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("CELLDB_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("CELLDB_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("CELLDB_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("CELLDB_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("CELLDB_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("CELLDB_HEALTH_PORT", cfg.Server.HealthPort)

	cfg.Storage.Type = getEnv("CELLDB_STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.GoogleSpreadsheetID = getEnv("CELLDB_SPREADSHEET_ID", cfg.Storage.GoogleSpreadsheetID)
	cfg.Storage.GoogleCredentialsFile = getEnv("CELLDB_CREDENTIALS_FILE", cfg.Storage.GoogleCredentialsFile)
	cfg.Storage.SQLitePath = getEnv("CELLDB_SQLITE_PATH", cfg.Storage.SQLitePath)

	cfg.Auth.SessionTTL = getEnvDuration("CELLDB_SESSION_TTL", cfg.Auth.SessionTTL)
	cfg.Auth.CacheSize = getEnvInt("CELLDB_AUTH_CACHE_SIZE", cfg.Auth.CacheSize)
	cfg.Auth.CacheTTL = getEnvDuration("CELLDB_AUTH_CACHE_TTL", cfg.Auth.CacheTTL)

	cfg.RateLimit.Enabled = getEnvBool("CELLDB_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = getEnvInt("CELLDB_RATELIMIT_RPM", cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.Burst = getEnvInt("CELLDB_RATELIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.RedisURL = getEnv("CELLDB_REDIS_URL", cfg.RateLimit.RedisURL)
	cfg.RateLimit.RedisPassword = getEnv("CELLDB_REDIS_PASSWORD", cfg.RateLimit.RedisPassword)
	cfg.RateLimit.RedisDB = getEnvInt("CELLDB_REDIS_DB", cfg.RateLimit.RedisDB)

	cfg.Observability.LogLevelName = getEnv("CELLDB_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("CELLDB_METRICS_ENABLED", cfg.Observability.MetricsEnabled)

	cfg.Stats.Enabled = getEnvBool("CELLDB_STATS_ENABLED", cfg.Stats.Enabled)
	cfg.Stats.Schedule = getEnv("CELLDB_STATS_SCHEDULE", cfg.Stats.Schedule)
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case sheetstore.TypeGoogle:
		if c.Storage.GoogleSpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id is required for google storage")
		}
		if c.Storage.GoogleCredentialsFile == "" {
			return fmt.Errorf("credentials file is required for google storage")
		}
	case sheetstore.TypeSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	case sheetstore.TypeMemory:
	default:
		return fmt.Errorf("invalid storage type: %s (must be google, sqlite, or memory)", c.Storage.Type)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute < 1 {
			return fmt.Errorf("requests per minute must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}
	if c.Auth.CacheSize < 1 {
		return fmt.Errorf("auth cache size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
