package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile string // Optional: path to SQLite database file (default: ./muster.db)

	TokenSizeBytes   int           // Optional: entropy per opaque token in bytes (default: 64)
	AccessTokenTTL   time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL  time.Duration // Optional: refresh token lifetime (default: 720h)
	MaxTokensPerUser int           // Optional: live refresh records per user (default: 3)

	SessionCacheBackend string // Optional: session cache backend (memory, redis) (default: memory)
	RedisAddr           string // Required when backend is redis
	RedisPassword       string // Optional
	RedisDB             int    // Optional

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile: getEnvOrDefault("MUSTER_DATABASE_FILE", "muster.db"),

		TokenSizeBytes:   getEnvIntOrDefault("TOKEN_SIZE_BYTES", 64),
		AccessTokenTTL:   getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getEnvDurationOrDefault("REFRESH_TOKEN_TTL", 720*time.Hour),
		MaxTokensPerUser: getEnvIntOrDefault("MAX_TOKENS_PER_USER", 3),

		SessionCacheBackend: getEnvOrDefault("SESSION_CACHE_BACKEND", "memory"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvIntOrDefault("REDIS_DB", 0),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects a config the service cannot safely run with. Called once at
// startup; any error here is fatal.
func (cfg Config) Validate() error {
	if cfg.TokenSizeBytes <= 0 {
		return fmt.Errorf("TOKEN_SIZE_BYTES must be positive, got %d", cfg.TokenSizeBytes)
	}
	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive, got %s", cfg.RefreshTokenTTL)
	}
	if cfg.MaxTokensPerUser <= 0 {
		return fmt.Errorf("MAX_TOKENS_PER_USER must be positive, got %d", cfg.MaxTokensPerUser)
	}

	switch cfg.SessionCacheBackend {
	case "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_CACHE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_CACHE_BACKEND %q", cfg.SessionCacheBackend)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535, got %d", cfg.Port)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
