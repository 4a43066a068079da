package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(BrontoAPIKey, "test-key")
	t.Setenv(BrontoAPIEndpoint, "https://api.eu.bronto.io")
	for _, key := range []string{
		BrontoDeploymentMode, BrontoMCPPort, BrontoLogLevel, BrontoTimezone,
		BrontoMaxTimeRange, BrontoMaxResults, BrontoRequestTimeout, BrontoTelemetryWriteKey,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "https://api.eu.bronto.io", cfg.APIEndpoint)
	assert.Equal(t, "local", cfg.DeploymentMode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.Equal(t, 30*24*time.Hour, cfg.MaxTimeRange)
	assert.Equal(t, 1000, cfg.MaxResults)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.TelemetryWriteKey)
}

func TestLoadConfig_MissingAPIKey(t *testing.T) {
	t.Setenv(BrontoAPIKey, "")
	t.Setenv(BrontoAPIEndpoint, "https://api.eu.bronto.io")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), BrontoAPIKey)
}

func TestLoadConfig_MissingEndpoint(t *testing.T) {
	t.Setenv(BrontoAPIKey, "test-key")
	t.Setenv(BrontoAPIEndpoint, "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), BrontoAPIEndpoint)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(BrontoDeploymentMode, "cloud")
	t.Setenv(BrontoMCPPort, "9090")
	t.Setenv(BrontoLogLevel, "debug")
	t.Setenv(BrontoTimezone, "Europe/Dublin")
	t.Setenv(BrontoMaxTimeRange, "7d")
	t.Setenv(BrontoMaxResults, "250")
	t.Setenv(BrontoRequestTimeout, "10s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "cloud", cfg.DeploymentMode)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Europe/Dublin", cfg.Timezone.String())
	assert.Equal(t, 7*24*time.Hour, cfg.MaxTimeRange)
	assert.Equal(t, 250, cfg.MaxResults)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timezone", BrontoTimezone, "Atlantis/Nowhere"},
		{"bad time range", BrontoMaxTimeRange, "fortnight"},
		{"bad max results", BrontoMaxResults, "-5"},
		{"bad timeout", BrontoRequestTimeout, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
