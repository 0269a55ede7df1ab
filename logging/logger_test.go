package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "debug", LogLevelDebug.String())
	assert.Equal(t, "info", LogLevelInfo.String())
	assert.Equal(t, "warn", LogLevelWarn.String())
	assert.Equal(t, "error", LogLevelError.String())
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.Info("node finished", "node_id", "n1", "status", "succeeded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "node finished", entry["msg"])
	assert.Equal(t, "n1", entry["node_id"])
	assert.Equal(t, "succeeded", entry["status"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LogLevelWarn, Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden too")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.Positive(t, buf.Len())
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	assert.NotNil(t, New(nil))
}

func TestZapAdapter(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapAdapter(zap.New(obsCore))

	logger.Info("breaker opened", "dependency", "model:openai")
	logger.Error("node failed", "node_id", "n2")

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "breaker opened", first.Message)
	assert.Equal(t, "model:openai", first.ContextMap()["dependency"])
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestNoOpLoggerDiscards(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x", "k", "v")
	l.Warn("x")
	l.Error("x")
}
