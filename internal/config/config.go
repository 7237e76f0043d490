package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabaseURL is either a SQLite file path or a postgres:// URL.
	DatabaseURL string

	// AdminPassword seeds the admin credential when none is stored yet.
	AdminPassword string

	// BcryptCost is the work factor for new password hashes.
	BcryptCost int

	// MaxPostAge limits listings to recent posts.
	MaxPostAge time.Duration

	// FailureLimit and FailureWindow bound wrong-password attempts per post.
	FailureLimit  int
	FailureWindow time.Duration

	// CreateRate is the number of posts a single client IP may create per
	// minute.
	CreateRate int

	// AllowedOrigin is sent as the CORS origin and checked on websocket
	// upgrades.
	AllowedOrigin string
}

// IsPostgres reports whether DatabaseURL points at PostgreSQL rather than a
// SQLite file.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, err := intEnv("PORT", 3000)
	if err != nil {
		return nil, err
	}

	cost, err := intEnv("BOARD_BCRYPT_COST", 10)
	if err != nil {
		return nil, err
	}

	maxAge, err := durationEnv("BOARD_MAX_POST_AGE", 60*24*time.Hour)
	if err != nil {
		return nil, err
	}

	failureLimit, err := intEnv("BOARD_FAILURE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	if failureLimit < 1 {
		return nil, fmt.Errorf("invalid BOARD_FAILURE_LIMIT: must be at least 1")
	}

	failureWindow, err := durationEnv("BOARD_FAILURE_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}
	if failureWindow <= 0 {
		return nil, fmt.Errorf("invalid BOARD_FAILURE_WINDOW: must be positive")
	}

	createRate, err := intEnv("BOARD_CREATE_RATE", 6)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:          port,
		DatabaseURL:   stringEnv("DATABASE_URL", "activists.db"),
		AdminPassword: stringEnv("BOARD_ADMIN_PASSWORD", "4141"),
		BcryptCost:    cost,
		MaxPostAge:    maxAge,
		FailureLimit:  failureLimit,
		FailureWindow: failureWindow,
		CreateRate:    createRate,
		AllowedOrigin: stringEnv("BOARD_ALLOWED_ORIGIN", "*"),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
