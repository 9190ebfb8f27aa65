package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string
	BackendURL    string
	FallbackFile  string
	SyncTimeout   time.Duration
	SessionSecret string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	Environment   string
	MaxBodyBytes  int64
}

func Load() Config {
	return Config{
		Addr:          getEnv("APP_ADDR", ":8080"),
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:4000"),
		FallbackFile:  getEnv("FALLBACK_FILE", "db.json"),
		SyncTimeout:   getEnvDuration("SYNC_TIMEOUT", 5*time.Second),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Environment:   getEnv("APP_ENV", "development"),
		MaxBodyBytes:  int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" && strings.TrimSpace(c.FallbackFile) == "" {
		return fmt.Errorf("BACKEND_URL or FALLBACK_FILE is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("SYNC_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}
