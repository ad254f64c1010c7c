package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/eqt-market-sim/internal/config"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.log")
	logger, err := New(config.LoggingConfig{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Info("tick")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"tick"`)
	assert.Contains(t, string(data), `"time":`)
}

func TestNewFileOnly(t *testing.T) {
	logger, err := NewFileOnly(config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))

	_, err = NewFileOnly(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "chart.log")
	logger, err = NewFileOnly(config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)
	logger.Warn("stream error")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"stream error"`)
}
