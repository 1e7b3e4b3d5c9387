package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration parameters of the application.
type Config struct {
	ServerPort    int
	DatabaseURL   string
	SessionSecret string
	CORSOrigins   []string
	// RefreshInterval drives the client-side reconciliation loop when the
	// embedded client is constructed from the same config.
	RefreshInterval time.Duration
}

// Load reads configuration from environment variables, optionally picking
// up a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is not fatal

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	origins := []string{"*"}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	interval := 30 * time.Second
	if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
		interval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REFRESH_INTERVAL environment variable: %w", err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %v", interval)
		}
	}

	return &Config{
		ServerPort:      port,
		DatabaseURL:     dbURL,
		SessionSecret:   secret,
		CORSOrigins:     origins,
		RefreshInterval: interval,
	}, nil
}
