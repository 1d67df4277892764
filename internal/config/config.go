// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Optional — when empty
	// the server runs in local-only mode: conversations work, but draft
	// persistence and plan history are disabled.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// OpenAIAPIKey authenticates against the plan-generation service.
	// Optional — when empty, confirming a demand reports the service as
	// unavailable instead of generating a plan.
	OpenAIAPIKey string

	// OpenAIModel selects the generation model. Defaults to "gpt-5-mini".
	OpenAIModel string

	// AMapAPIKey authenticates against the AMap web API for geocoding and
	// walking routes. Optional — when empty the map endpoints return 503.
	AMapAPIKey string

	// AuthVerifyURL is the user-info endpoint of the hosted auth backend.
	// Optional — when empty all requests are anonymous and the draft and
	// history endpoints return 401.
	AuthVerifyURL string

	// ConversationTTL is how long an idle conversation stays in memory.
	// Defaults to 2h. Set CONVERSATION_TTL to a Go duration to override.
	ConversationTTL time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error when a variable is set to an unparseable value.
func Load() (Config, error) {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-5-mini"),
		AMapAPIKey:      os.Getenv("AMAP_API_KEY"),
		AuthVerifyURL:   os.Getenv("AUTH_VERIFY_URL"),
		ConversationTTL: 2 * time.Hour,
	}

	if raw := os.Getenv("CONVERSATION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", raw, err)
		}
		if ttl <= 0 {
			return Config{}, fmt.Errorf("CONVERSATION_TTL must be positive, got %q", raw)
		}
		cfg.ConversationTTL = ttl
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
