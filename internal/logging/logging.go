// Package logging builds the application's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"clickpulse/internal/config"
)

// NewLogger creates a slog.Logger configured from the application config.
// In production, log output goes to a size-rotated file; everywhere else
// it goes to stdout as well.
func NewLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout

	if cfg.IsProduction() {
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
			MaxSize:    cfg.LogsMaxSizeInMb,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeInDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})
	return slog.New(handler)
}

func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
