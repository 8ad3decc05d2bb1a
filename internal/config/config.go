// Package config loads admitd configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/northgrid/admitd/pkg/store"
)

// Config holds everything the service needs at startup.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string
	// DataDir is the root of the per-tenant namespace databases.
	DataDir string
	// DevAuthURL is the base URL of the device-authentication service.
	DevAuthURL string
	// DevAuthTimeout bounds each gateway request.
	DevAuthTimeout time.Duration
	// PageSize is the default page size for device listings.
	PageSize int
	// TokenSecret enables HMAC verification of inbound tokens when set.
	TokenSecret string
}

// Load reads configuration from the environment, after loading a .env
// file if one is present.
func Load() (*Config, error) {
	godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("ADMITD_DEVAUTH_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMITD_DEVAUTH_TIMEOUT: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("ADMITD_PAGE_SIZE", "20"))
	if err != nil || pageSize < 1 {
		return nil, fmt.Errorf("invalid ADMITD_PAGE_SIZE: %q", getEnv("ADMITD_PAGE_SIZE", "20"))
	}

	return &Config{
		Listen:         getEnv("ADMITD_LISTEN", ":8080"),
		DataDir:        getEnv("ADMITD_DATA_DIR", store.DefaultDataDir()),
		DevAuthURL:     getEnv("ADMITD_DEVAUTH_URL", "http://127.0.0.1:8081"),
		DevAuthTimeout: timeout,
		PageSize:       pageSize,
		TokenSecret:    os.Getenv("ADMITD_TOKEN_SECRET"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
