package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("text handler at info level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "info", Format: "text"}, &buf)

		log.Debug("dropped")
		log.Info("kept", "key", "value")

		out := buf.String()
		assert.NotContains(t, out, "dropped")
		assert.Contains(t, out, "level=INFO")
		assert.Contains(t, out, "msg=kept")
		assert.Contains(t, out, "key=value")
	})

	t.Run("json handler at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "debug", Format: "json"}, &buf)

		log.Debug("test message")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "DEBUG", entry["level"])
		assert.Equal(t, "test message", entry["msg"])
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "chatty", Format: "text"}, &buf)

		log.Debug("dropped")
		log.Info("kept")

		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})
}
