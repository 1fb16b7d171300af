package cmd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	lvl := new(slog.LevelVar)

	var jsonOut bytes.Buffer
	newLogger(&jsonOut, LogFormatJSON, lvl).Info("HUB_READY", slog.Int("capacity", 8))
	assert.Contains(t, jsonOut.String(), `"msg":"HUB_READY"`)

	var textOut bytes.Buffer
	newLogger(&textOut, LogFormatText, lvl).Info("HUB_READY")
	assert.Contains(t, textOut.String(), "msg=HUB_READY")
}

func TestNewLogger_LevelVarIsLive(t *testing.T) {
	t.Parallel()

	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)

	var out bytes.Buffer
	logger := newLogger(&out, LogFormatJSON, lvl)

	logger.Info("HIDDEN")
	require.Zero(t, out.Len())

	lvl.Set(slog.LevelDebug)
	logger.Info("SHOWN")
	assert.Contains(t, out.String(), "SHOWN")
}
