package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4, cfg.Executor.Workers)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Breaker.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown.Std())
	assert.Equal(t, 8, cfg.Agent.MaxIterations)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
executor:
  workers: 16
retry:
  max_attempts: 5
  base_delay: 250ms
breaker:
  threshold: 10
  cooldown: 1m
pipeline:
  chunk_size: 1024
  top_n: 8
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Executor.Workers)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay.Std())
	assert.Equal(t, 10, cfg.Breaker.Threshold)
	assert.Equal(t, time.Minute, cfg.Breaker.Cooldown.Std())
	assert.Equal(t, 1024, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 8, cfg.Pipeline.TopN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Untouched fields still get defaults.
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, 16, cfg.Pipeline.EmbedBatchSize)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("executor: ["))
	assert.Error(t, err)
}

func TestParseRejectsBadLevel(t *testing.T) {
	_, err := Parse([]byte("logging:\n  level: loud\n"))
	assert.Error(t, err)
}

func TestParseRejectsExcessJitter(t *testing.T) {
	_, err := Parse([]byte("retry:\n  jitter: 1.5\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphbit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor:\n  workers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Executor.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
