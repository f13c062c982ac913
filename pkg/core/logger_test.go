package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"off", LogLevelSilent},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestHCLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewHCLogger(LoggerOptions{Name: "codeguard", Level: LogLevelWarn, Output: &buf})

	log.Info("scanned %d lines", 10)
	log.Warn("input truncated at %d bytes", 512)

	out := buf.String()
	assert.NotContains(t, out, "scanned 10 lines")
	assert.Contains(t, out, "input truncated at 512 bytes")
	assert.Contains(t, out, "codeguard")
}

func TestHCLogger_JSONAndNamed(t *testing.T) {
	var buf bytes.Buffer
	log := NewHCLogger(LoggerOptions{Name: "codeguard", Level: LogLevelDebug, Output: &buf, JSON: true}).Named("history")

	log.Debug("saved %s", "abc")

	out := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"@module":"codeguard.history"`)
	assert.Contains(t, out, "saved abc")
}

func TestDefaultLogger(t *testing.T) {
	defer SetDefaultLogger(nil)

	_, ok := GetDefaultLogger().(*NopLogger)
	assert.True(t, ok)

	l := NewHCLogger(LoggerOptions{Level: LogLevelSilent})
	SetDefaultLogger(l)
	assert.Same(t, l, GetDefaultLogger())

	SetDefaultLogger(nil)
	_, ok = GetDefaultLogger().(*NopLogger)
	assert.True(t, ok)
}
