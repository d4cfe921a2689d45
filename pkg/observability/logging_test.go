package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" critical ", LevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	for _, input := range []string{"", "verbose", "fatal", "10"} {
		_, err := ParseLevel(input)
		assert.Equal(t, exl.ErrorCodeConfiguration, exl.CodeOf(err), "input %q", input)
	}
}

func TestNewLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelError, "text")

	logger.Info("hidden")
	logger.Error("shown", "file", "a.exl")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "file=a.exl")
}

func TestNewLogger_CriticalLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelCritical, "json")

	logger.Error("hidden")
	logger.Log(t.Context(), LevelCritical, "run aborted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "CRITICAL", entry["level"])
	assert.Equal(t, "run aborted", entry["msg"])
}
