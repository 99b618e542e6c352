package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasGates3/ai-powered-iam/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json at warn level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.Log{Level: "warn", Format: "json"})

		log.Info("dropped")
		log.Warn("kept", "policy_id", "p-1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "p-1", entry["policy_id"])
		assert.Equal(t, "ai-powered-iam", entry["service"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, config.Log{Level: "debug", Format: "text"}).Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}
