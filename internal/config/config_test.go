package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, ":3000", cfg.GetHTTPAddr())
	assert.Equal(t, ":3001", cfg.GetGRPCAddr())
	assert.True(t, cfg.GRPCEnabled)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, StrategyAtomic, cfg.Counters.IncrementStrategy)
	assert.Equal(t, "", cfg.Counters.KeyPrefix)
	assert.Equal(t, 15*time.Second, cfg.HealthCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.ShutdownTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("COUNTER_INCREMENT_STRATEGY", "unguarded")
	t.Setenv("COUNTER_KEY_PREFIX", "lc:")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, StrategyUnguarded, cfg.Counters.IncrementStrategy)
	assert.Equal(t, "lc:", cfg.Counters.KeyPrefix)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "HTTP_PORT", "70000"},
		{"unknown strategy", "COUNTER_INCREMENT_STRATEGY", "lock"},
		{"unknown log level", "LOG_LEVEL", "trace"},
		{"port collision", "GRPC_PORT", "3000"},
		{"zero CAS retries", "COUNTER_CAS_RETRIES", "0"},
		{"unparseable port", "HTTP_PORT", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGRPCPortIgnoredWhenDisabled(t *testing.T) {
	t.Setenv("GRPC_ENABLED", "false")
	t.Setenv("GRPC_PORT", "3000")

	_, err := Load()
	assert.NoError(t, err)
}
