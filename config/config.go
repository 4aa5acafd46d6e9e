package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Poller   PollerConfig
	Outlook  OutlookConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Admin    AdminConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
	CORSOrigins             []string
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// FeedConfig controls outbound feed fetches.
type FeedConfig struct {
	AlertsURL    string
	UserAgent    string
	FetchTimeout time.Duration
	RateLimit    float64 // outbound requests per second across all products
}

// PollerConfig controls the NWS alerts poller.
type PollerConfig struct {
	Enabled      bool
	Interval     time.Duration
	Limit        int
	SnapshotLoad bool
	SnapshotPath string
	// Optional upstream readiness wait before the first fetch.
	ReadyWaitURL     string
	ReadyWaitTimeout time.Duration
}

// OutlookConfig controls the SPC outlook poller.
type OutlookConfig struct {
	Enabled  bool
	Once     bool
	Interval time.Duration // zero means align to the top of the hour
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AdminConfig struct {
	AdminKey   string
	CSRFSecret string
}

type RedisConfig struct {
	URL string
	RPM int
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:             getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Feed: FeedConfig{
			AlertsURL:    getEnv("NWS_ALERTS_URL", "https://api.weather.gov/alerts"),
			UserAgent:    getEnv("FEED_USER_AGENT", "weather-alert-router/1.0"),
			FetchTimeout: getEnvDuration("FEED_FETCH_TIMEOUT", 30*time.Second),
			RateLimit:    getEnvFloat("FEED_RATE_LIMIT", 2.0),
		},
		Poller: PollerConfig{
			Enabled:          getEnvBool("POLL_ENABLED", false),
			Interval:         time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 300)) * time.Second,
			Limit:            getEnvInt("POLL_LIMIT", 100),
			SnapshotLoad:     getEnvBool("LOAD_EXAMPLE_JSON", false),
			SnapshotPath:     getEnv("LOAD_EXAMPLE_JSON_PATH", "examples/alerts_snapshot.json"),
			ReadyWaitURL:     getEnv("READY_WAIT_URL", ""),
			ReadyWaitTimeout: getEnvDuration("READY_WAIT_TIMEOUT", 60*time.Second),
		},
		Outlook: OutlookConfig{
			Enabled:  getEnvBool("SPC_AUTO_REFRESH", true),
			Once:     getEnvBool("SPC_ONCE", false),
			Interval: time.Duration(getEnvInt("SPC_INTERVAL_MINUTES", 0)) * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Admin: AdminConfig{
			AdminKey:   getEnv("ADMIN_KEY", ""),
			CSRFSecret: getEnv("CSRF_SECRET", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
			RPM: getEnvInt("RATE_LIMIT_RPM", 60),
		},
	}

	// The CSRF secret falls back to the admin key, matching the admin client.
	if cfg.Admin.CSRFSecret == "" {
		cfg.Admin.CSRFSecret = cfg.Admin.AdminKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Poller.Limit < 1 {
		return fmt.Errorf("poll limit must be at least 1")
	}
	if c.Poller.Interval < time.Second {
		return fmt.Errorf("poll interval must be at least 1s")
	}
	if c.Feed.FetchTimeout <= 0 {
		return fmt.Errorf("feed fetch timeout must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
