package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("CANVAS_BASE_URL", "https://canvas.example.edu")
	t.Setenv("CAGFORGE_LLM_PROVIDER", "anthropic")
	t.Setenv("CAGFORGE_LLM_TIMEOUT", "30s")
	t.Setenv("CAGFORGE_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "https://canvas.example.edu", cfg.CanvasBaseURL)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
}

func TestLoadDefaults(t *testing.T) {
	t.Run("missing file keeps builtins", func(t *testing.T) {
		d, err := LoadDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, BuiltinDefaults(), d)
	})

	t.Run("file overrides named fields only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cagforge.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"start_date: \"2026-01-12 00:00:00\"\nbuild_type: 1\n"), 0o644))

		d, err := LoadDefaults(path)
		require.NoError(t, err)
		assert.Equal(t, "2026-01-12 00:00:00", d.StartDate)
		assert.Equal(t, 1, d.BuildType)
		assert.Equal(t, BuiltinDefaults().DiscussionTemplate, d.DiscussionTemplate)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cagforge.yaml")
		require.NoError(t, os.WriteFile(path, []byte("build_type: [oops"), 0o644))
		_, err := LoadDefaults(path)
		assert.ErrorContains(t, err, "parse")
	})
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("build finished", "course_id", 43110)
	logger.Debug("suppressed")

	// Text on stderr, JSON in the file, same records on both.
	assert.Contains(t, stderr.String(), "build finished")
	assert.Contains(t, stderr.String(), "course_id=43110")
	assert.NotContains(t, stderr.String(), "suppressed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &record))
	assert.Equal(t, "build finished", record["msg"])
	assert.Equal(t, float64(43110), record["course_id"])
}
