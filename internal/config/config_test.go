package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 5*time.Second, cfg.StatusPollInterval)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STATUS_POLL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, 5, cfg.RateLimitRequests)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("STATUS_POLL_INTERVAL", "not-a-duration")
	t.Setenv("RATE_LIMIT_REQUESTS", "many")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, 60, cfg.RateLimitRequests)
}
