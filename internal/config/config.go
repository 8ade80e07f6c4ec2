package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	LogFormat   string

	// Real-time fan-out tuning.
	MaxClientsPerRoom int

	// Per-actor rate limit on vote endpoints.
	VoteRatePerSecond float64
	VoteRateBurst     int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var err error
	if cfg.MaxClientsPerRoom, err = getEnvInt("MAX_CLIENTS_PER_ROOM", 100); err != nil {
		return nil, err
	}
	if cfg.MaxClientsPerRoom <= 0 {
		return nil, fmt.Errorf("MAX_CLIENTS_PER_ROOM must be positive")
	}

	if cfg.VoteRatePerSecond, err = getEnvFloat("VOTE_RATE_PER_SECOND", 5); err != nil {
		return nil, err
	}
	if cfg.VoteRateBurst, err = getEnvInt("VOTE_RATE_BURST", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}
