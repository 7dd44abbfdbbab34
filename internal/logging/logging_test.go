package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/logging"
)

func TestNewLogger_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewLogger("INFO", "json", &buf)
	logger.Info("test message", slog.String("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be valid JSON")
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNewLogger_TextOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewLogger("debug", "TEXT", &buf)
	logger.Debug("hello", "file", "settings.yaml")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "file=settings.yaml")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{name: "debug", level: "DEBUG", want: slog.LevelDebug},
		{name: "lowercase info", level: "info", want: slog.LevelInfo},
		{name: "warn", level: "WARN", want: slog.LevelWarn},
		{name: "warning alias", level: "warning", want: slog.LevelWarn},
		{name: "error", level: "ERROR", want: slog.LevelError},
		{name: "empty defaults to info", level: "", want: slog.LevelInfo},
		{name: "invalid defaults to info", level: "loud", want: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, logging.ParseLevel(tc.level))
		})
	}
}
