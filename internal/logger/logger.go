package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide structured logger. level is one of
// debug/info/warn/error (case-insensitive), defaulting to info on an
// unrecognized value; format is text or json, defaulting to text.
func New(level, format string) *slog.Logger {
	lvl, _ := parseLevel(level) // unknown values come back as info
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
