package config_test

import (
	"testing"
	"time"

	"github.com/planmate/backend/internal/config"
	"github.com/stretchr/testify/require"
)

// TestLoad_defaults verifies that optional env vars fall back to their defaults
// when nothing is set.
func TestLoad_defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("AMAP_API_KEY", "")
	t.Setenv("AUTH_VERIFY_URL", "")
	t.Setenv("CONVERSATION_TTL", "")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	require.Empty(t, cfg.OpenAIAPIKey)
	require.Equal(t, "gpt-5-mini", cfg.OpenAIModel)
	require.Empty(t, cfg.AMapAPIKey)
	require.Empty(t, cfg.AuthVerifyURL)
	require.Equal(t, 2*time.Hour, cfg.ConversationTTL)
}

// TestLoad_overrides verifies that all values can be overridden via env vars.
func TestLoad_overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/mydb")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-5")
	t.Setenv("AMAP_API_KEY", "amap-test")
	t.Setenv("AUTH_VERIFY_URL", "https://auth.example.com/auth/v1/user")
	t.Setenv("CONVERSATION_TTL", "30m")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "postgres://user:pass@db:5432/mydb", cfg.DatabaseURL)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	require.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	require.Equal(t, "gpt-5", cfg.OpenAIModel)
	require.Equal(t, "amap-test", cfg.AMapAPIKey)
	require.Equal(t, "https://auth.example.com/auth/v1/user", cfg.AuthVerifyURL)
	require.Equal(t, 30*time.Minute, cfg.ConversationTTL)
}

// TestLoad_invalidTTL verifies that a malformed CONVERSATION_TTL is rejected
// with an error naming the variable.
func TestLoad_invalidTTL(t *testing.T) {
	t.Setenv("CONVERSATION_TTL", "soon")

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "CONVERSATION_TTL")
}

// TestLoad_nonPositiveTTL verifies that a zero or negative TTL is rejected.
func TestLoad_nonPositiveTTL(t *testing.T) {
	t.Setenv("CONVERSATION_TTL", "-5m")

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "positive")
}
