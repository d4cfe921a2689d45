package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/sirilvk/exl-loader/pkg/exl"
)

// LevelCritical sits above slog.LevelError for operators who only want
// run-ending failures.
const LevelCritical = slog.Level(12)

// ParseLevel maps a log level name to a slog.Level. Names are matched
// case-insensitively.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, exl.ErrConfiguration("log", "Invalid log level").
			WithContext("value", name)
	}
}

// NewLogger builds the process logger. format is "text" (default) or "json".
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
