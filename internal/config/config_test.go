package config_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shodh/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "http://localhost:8000/api", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.False(t, cfg.UseAgent)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SHODH_SERVER_URL", "http://paper-server:9000/api")
	t.Setenv("SHODH_REQUEST_TIMEOUT", "90s")
	t.Setenv("SHODH_USE_AGENT", "true")
	t.Setenv("SHODH_LOG_LEVEL", "debug")

	cfg := config.Load()

	assert.Equal(t, "http://paper-server:9000/api", cfg.ServerURL)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.UseAgent)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadIgnoresBadTimeout(t *testing.T) {
	t.Setenv("SHODH_REQUEST_TIMEOUT", "not-a-duration")

	cfg := config.Load()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout, "bad duration falls back to default")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, config.ParseLogLevel(tt.input), "input %q", tt.input)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer

	logger := config.SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("stream opened", "paper_id", "p1")
	logger.Debug("suppressed")

	assert.Contains(t, stderr.String(), "stream opened", "text record on stderr")
	assert.NotContains(t, stderr.String(), "suppressed", "debug filtered at info level")

	var record map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &record), "file side is JSON")
	assert.Equal(t, "stream opened", record["msg"])
	assert.Equal(t, "p1", record["paper_id"])
}
