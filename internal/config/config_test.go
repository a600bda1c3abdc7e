package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://desk.example.com/api/")
	t.Setenv("REALTIME_TRANSPORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://desk.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, TransportSSE, cfg.Realtime.Transport)
	assert.Equal(t, "https://desk.example.com/api/tickets/stream", cfg.Realtime.SSEURL)
	assert.Equal(t, 90*time.Second, cfg.Cache.RefreshTTL())
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	t.Setenv("REALTIME_TRANSPORT", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REALTIME_TRANSPORT", "Redis")
	t.Setenv("CACHE_REFRESH_TTL_SECONDS", "30")
	t.Setenv("REALTIME_RECONNECT_MIN_MS", "200")
	t.Setenv("REALTIME_RECONNECT_MAX_MS", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransportRedis, cfg.Realtime.Transport)
	assert.Equal(t, 30*time.Second, cfg.Cache.RefreshTTL())
	lo, hi := cfg.Realtime.Backoff()
	assert.Equal(t, 200*time.Millisecond, lo)
	assert.Equal(t, lo, hi)
}
