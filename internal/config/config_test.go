package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, zerolog.InfoLevel, cfg.App.LogLevel)
	assert.Equal(t, StoreMemory, cfg.App.PreferenceStore)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, uint64(3), cfg.Providers.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Engine.OptimizerTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Engine.PredictionInterval)
	assert.Equal(t, "routopia", cfg.Database.Database)
	assert.Equal(t, 10*time.Minute, cfg.Worker.RefreshInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("PREFERENCE_STORE", "Postgres")
	t.Setenv("PROVIDER_RETRY_ATTEMPTS", "5")
	t.Setenv("OPTIMIZER_TIMEOUT", "3s")
	t.Setenv("TOMTOM_API_KEY", "tt-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, zerolog.DebugLevel, cfg.App.LogLevel)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, StorePostgres, cfg.App.PreferenceStore)
	assert.Equal(t, uint64(5), cfg.Providers.Retry.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Engine.OptimizerTimeout)
	assert.Equal(t, "tt-key", cfg.Providers.TomTomAPIKey)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("WORKER_PORT=7070\nMAX_ALTERNATIVES=4\n"), 0o600))
	t.Setenv("MAX_ALTERNATIVES", "3")
	t.Cleanup(func() { os.Unsetenv("WORKER_PORT") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Worker.Port)
	assert.Equal(t, 3, cfg.Engine.MaxAlternatives, "environment wins over the file")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("PROVIDER_HTTP_TIMEOUT", "soon")
	t.Setenv("SEGMENT_CONCURRENCY", "many")
	t.Setenv("OTEL_ENABLED", "maybe")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "PROVIDER_HTTP_TIMEOUT")
	assert.ErrorContains(t, err, "SEGMENT_CONCURRENCY")
	assert.ErrorContains(t, err, "OTEL_ENABLED")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown store", "PREFERENCE_STORE", "redis", "PREFERENCE_STORE"},
		{"sample ratio", "OTEL_SAMPLE_RATIO", "1.5", "OTEL_SAMPLE_RATIO"},
		{"no attempts", "PROVIDER_RETRY_ATTEMPTS", "0", "PROVIDER_RETRY_ATTEMPTS"},
		{"no alternatives", "MAX_ALTERNATIVES", "0", "MAX_ALTERNATIVES"},
		{"short interval", "PREDICTION_INTERVAL", "10s", "PREDICTION_INTERVAL"},
		{"short refresh", "REFRESH_INTERVAL", "5s", "REFRESH_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
