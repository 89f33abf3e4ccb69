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

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.SampleSize)
	assert.Equal(t, 10, cfg.DefaultTopK)
	assert.Equal(t, 50, cfg.MaxTopK)
	assert.Equal(t, 50, cfg.TrainK)
	assert.Equal(t, int64(42), cfg.TrainSeed)
	assert.Equal(t, "euclidean", cfg.DistanceMetric)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("SAMPLE_SIZE", "12")
	t.Setenv("DISTANCE_METRIC", "manhattan")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis", cfg.SessionStore)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 12, cfg.SampleSize)
	assert.Equal(t, "manhattan", cfg.DistanceMetric)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadIgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown store":       {"SESSION_STORE": "disk"},
		"unknown metric":      {"DISTANCE_METRIC": "cosine"},
		"zero sample size":    {"SAMPLE_SIZE": "0"},
		"default above max":   {"DEFAULT_TOP_K": "60", "MAX_TOP_K": "50"},
		"port out of range":   {"PORT": "70000"},
		"unknown log format":  {"LOG_FORMAT": "xml"},
		"ttl shorter than 1s": {"SESSION_TTL": "10ms"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
