package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.test/api")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_PER_MIN", "42")
	t.Setenv("SEED_DEMO_DATA", "off")

	cfg := Load()
	assert.Equal(t, "http://api.test/api", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 42, cfg.RateLimitPerMin)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, "file", cfg.SessionBackend)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 600, cfg.RateLimitPerMin)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: http://school.example/api
session_backend: redis
poll_interval: 1m
log_level: debug
`), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://school.example/api", cfg.APIBaseURL)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "contesthub", cfg.JWTIssuer)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestUploadsEnabled(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.UploadsEnabled())
	cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret = "demo", "key", "secret"
	assert.True(t, cfg.UploadsEnabled())
}
