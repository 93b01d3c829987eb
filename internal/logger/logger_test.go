package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":    zap.DebugLevel,
		"info":     zap.InfoLevel,
		"WARNING":  zap.WarnLevel,
		"warn":     zap.WarnLevel,
		"ERROR":    zap.ErrorLevel,
		"CRITICAL": zap.DPanicLevel,
		"":         zap.InfoLevel,
		"verbose":  zap.InfoLevel,
	}
	for name, want := range cases {
		require.Equal(t, want, ParseLevel(name), "level %q", name)
	}
}

func TestNewWithWriter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("INFO", &buf)

	log.Debug("hidden")
	log.Info("request handled", zap.String("session_id", "abc"), zap.Int("status", 200))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "INFO", entry["level"])
	require.Equal(t, "request handled", entry["msg"])
	require.Equal(t, "abc", entry["session_id"])
	require.EqualValues(t, 200, entry["status"])
	require.NotEmpty(t, entry["time"])
	require.NotEmpty(t, entry["caller"])
}

func TestNewWithWriter_WarningThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("WARNING", &buf)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "kept")
}
