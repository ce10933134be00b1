package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings, read from the environment.
type Config struct {
	DatabaseURL string
	ServerPort  int

	// Cloudflare R2 snapshot archive. Optional; archiving is skipped when
	// the account ID is empty.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// Client transport tuning.
	WSBaseDelay  time.Duration
	WSMaxDelay   time.Duration
	WSMaxRetries int
	WSQueueSize  int
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	baseDelayMS, err := intEnv("WS_BASE_DELAY_MS", 500)
	if err != nil {
		return nil, err
	}
	maxDelayMS, err := intEnv("WS_MAX_DELAY_MS", 30_000)
	if err != nil {
		return nil, err
	}
	maxRetries, err := intEnv("WS_MAX_RETRIES", 10)
	if err != nil {
		return nil, err
	}
	queueSize, err := intEnv("WS_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:       dbURL,
		ServerPort:        port,
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		WSBaseDelay:       time.Duration(baseDelayMS) * time.Millisecond,
		WSMaxDelay:        time.Duration(maxDelayMS) * time.Millisecond,
		WSMaxRetries:      maxRetries,
		WSQueueSize:       queueSize,
	}, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}
