package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	log := NewNoDefault(Options{Service: "gateway", Env: "test", Level: "debug", Output: &buf})

	log.Debug("hello", slog.String("cart_id", "c1"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "gateway", rec["service"])
	assert.Equal(t, "test", rec["env"])
	assert.Equal(t, "c1", rec["cart_id"])
}

func TestTextFormatAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewNoDefault(Options{Service: "cartctl", Level: "warn", Format: "text", Output: &buf})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
	assert.Contains(t, buf.String(), "service=cartctl")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("whatever"))
}
