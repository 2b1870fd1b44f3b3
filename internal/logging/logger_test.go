package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tms/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	appCfg := config.AppConfig{
		Name:        "test-app",
		Environment: "test",
		Version:     "1.0.0",
	}

	t.Run("DefaultStdout", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "info", Output: "stdout"}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Nil(t, closer)
	})

	t.Run("Stderr", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "debug", Output: "stderr"}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
		assert.Nil(t, closer)
	})

	t.Run("File", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "logs", "test.log")
		cfg := config.LoggingConfig{Level: "error", Output: "file", FilePath: logPath}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		require.NotNil(t, closer)

		logger.Error().Msg("disk full")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "disk full")
	})

	t.Run("FileMissingPath", func(t *testing.T) {
		cfg := config.LoggingConfig{Output: "file", FilePath: ""}
		_, _, err := New(cfg, appCfg)
		assert.Error(t, err)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "invalid"}
		logger, _, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	app := config.AppConfig{Name: "tms", Environment: "test", Version: "0.1.0"}
	logger := NewWithWriter(config.LoggingConfig{}, app, &buf)

	Component(logger, "ledger").Info().Str("order_id", "ord-1").Msg("order created")
	logger.Debug().Msg("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "tms", entry["app"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "ord-1", entry["order_id"])
	assert.Equal(t, "order created", entry["message"])
	assert.NotContains(t, buf.String(), "hidden")
}
