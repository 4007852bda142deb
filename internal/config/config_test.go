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

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "data/tuner_state.json", cfg.State.Path)
	assert.Equal(t, 60, cfg.Tuning.PhaseBudget)
	assert.Equal(t, 0.05, cfg.Tuning.WarmStartMargin)
	assert.Equal(t, "matern52", cfg.Tuning.Kernel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STATE_PATH", "/tmp/custom_state.json")
	t.Setenv("TUNE_PHASE_BUDGET", "25")
	t.Setenv("TUNE_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/custom_state.json", cfg.State.Path)
	assert.Equal(t, 25, cfg.Tuning.PhaseBudget)
	assert.Equal(t, int64(42), cfg.Tuning.Seed)
}
