package logging

import (
	"log/slog"
	"strings"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = slog.LevelInfo

// ParseLevel converts "debug", "info", "warn"/"warning" or "error"
// (case-insensitive). Unknown values yield (DefaultLevel, false).
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return DefaultLevel, false
	}
}

// ParseLevelOrDefault is ParseLevel without the ok flag.
func ParseLevelOrDefault(s string) slog.Level {
	level, _ := ParseLevel(s)
	return level
}
