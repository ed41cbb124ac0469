package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers for the local settings storage.
const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel       string
	Port           string
	PrometheusPort string

	// Remote wishlist backend
	BackendURL     string
	BackendAPIPath string
	BackendTimeout time.Duration

	// Demo mode serves fixture data instead of calling the backend.
	DemoMode   bool
	DemoUserID int64

	NotificationsLimit int
	NoticeTTL          time.Duration

	// Local storage for client-side settings
	StorageDriver string
	StoragePath   string
	RedisURL      string
	DatabaseURL   string

	// Telegram launcher bot, optional
	TelegramToken string
	WebAppURL     string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when it exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		Port:           getEnvOrDefault("PORT", "8080"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		BackendURL:     os.Getenv("BACKEND_URL"),
		BackendAPIPath: getEnvOrDefault("BACKEND_API_PATH", "/api"),
		StorageDriver:  getEnvOrDefault("STORAGE_DRIVER", StorageFile),
		StoragePath:    getEnvOrDefault("STORAGE_PATH", "data/local_storage.yaml"),
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		WebAppURL:      os.Getenv("WEBAPP_URL"),
	}

	var err error
	if cfg.BackendTimeout, err = getDurationOrDefault("BACKEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.NoticeTTL, err = getDurationOrDefault("NOTICE_TTL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.DemoMode, err = getBoolOrDefault("DEMO_MODE", false); err != nil {
		return nil, err
	}
	if cfg.DemoUserID, err = getInt64OrDefault("DEMO_USER_ID", 123456); err != nil {
		return nil, err
	}
	limit, err := getInt64OrDefault("NOTIFICATIONS_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	cfg.NotificationsLimit = int(limit)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" && !c.DemoMode {
		return fmt.Errorf("BACKEND_URL environment variable is required unless DEMO_MODE=true")
	}
	switch c.StorageDriver {
	case StorageFile, StorageRedis:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.TelegramToken != "" && c.WebAppURL == "" {
		return fmt.Errorf("WEBAPP_URL environment variable is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getInt64OrDefault(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}
