package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

// Feature: community-backend, Property 23: Logs are structured
func TestProperty_LogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("production entries are JSON with level, timestamp, message and service", prop.ForAll(
		func(message, level string) bool {
			var buf bytes.Buffer
			logger, err := build("production", "debug", zapcore.AddSync(&buf))
			if err != nil {
				return false
			}

			switch level {
			case "debug":
				logger.Debug(message)
			case "info":
				logger.Info(message)
			case "warn":
				logger.Warn(message)
			case "error":
				logger.Error(message)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Logf("FAIL: not JSON: %q", buf.String())
				return false
			}
			for _, key := range []string{"level", "timestamp", "message", "service", "caller"} {
				if _, ok := entry[key]; !ok {
					t.Logf("FAIL: missing %q in %v", key, entry)
					return false
				}
			}
			return entry["message"] == message && entry["level"] == level && entry["service"] == ServiceName
		},
		gen.AlphaString(),
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBuild_ProductionDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := build("production", "", zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", zap.String("user_id", "42"))

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
	assert.Equal(t, "42", got[0]["user_id"])
	assert.Equal(t, "production", got[0]["env"])
}

func TestBuild_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	logger, err := build("production", "warn", zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "warn", got[0]["level"])
}

func TestBuild_ErrorsCarryStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger, err := build("production", "", zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Error("checkout failed", zap.Error(errors.New("boom")))

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0]["error"])
	assert.NotEmpty(t, got[0]["stacktrace"])
}

func TestBuild_DevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := build("development", "", zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("visible in development")
	out := buf.String()
	assert.Contains(t, out, "visible in development")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))), "console encoder output")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("production", "chatty")
	assert.Error(t, err)
}
