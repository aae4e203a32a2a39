package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// levelVar is the dynamic log level shared by every logger built by Setup.
var levelVar = new(slog.LevelVar)

// Levels lists the accepted log level names.
var Levels = []string{"debug", "info", "warn", "error"}

// Setup builds the JSON logger writing to w, installs it as the slog
// default and returns it so it can be handed to components.
func Setup(level string, w io.Writer) *slog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	levelVar.Set(lvl)

	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(log)
	return log
}

// SetLevel dynamically changes the log level without recreating the logger.
func SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	levelVar.Set(lvl)
	slog.Info("Log level changed", "level", level)
	return nil
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
