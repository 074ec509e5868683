package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Setenv("OPTION_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "option-pricing-engine", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 30*time.Second, cfg.API.ShutdownTimeout)
	assert.Equal(t, "pricing.requests", cfg.Kafka.Topics.PricingRequests)
	assert.Equal(t, 4096, cfg.Simulation.BatchSize)
	assert.Equal(t, 252, cfg.Simulation.DefaultSteps)
	assert.Nil(t, cfg.Simulation.SeedPointer())
	assert.True(t, cfg.Metrics.Prometheus.Enabled)
	assert.Equal(t, 5.0, cfg.API.RateLimit.RequestsPerSecond)
	assert.Equal(t, uint32(5), cfg.Kafka.Producer.Breaker.MinRequests)
	assert.Equal(t, 30*time.Second, cfg.Kafka.Producer.Breaker.Timeout)
}

func TestLoadReadsFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := []byte("app:\n  log_level: debug\nsimulation:\n  seed: 42\n  workers: 2\nscenario:\n  workers: 6\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("OPTION_CONFIG_PATH", path)
	t.Setenv("OPTION_API_PORT", "9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 2, cfg.Simulation.Workers)
	assert.Equal(t, 6, cfg.Scenario.Workers)
	assert.Equal(t, 9999, cfg.API.Port)

	seed := cfg.Simulation.SeedPointer()
	require.NotNil(t, seed)
	assert.Equal(t, uint64(42), *seed)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [unterminated"), 0o600))
	t.Setenv("OPTION_CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}
