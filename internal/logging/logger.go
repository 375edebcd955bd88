package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/siwarga/rwrt-backend/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	roller *lumberjack.Logger
)

// Init installs the process logger. Text output goes to stdout and the rolling
// file, JSON only to the file.
func Init(cfg *config.LoggingConfig) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		return err
	}

	roller = &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var writer io.Writer = roller
	if cfg.Format != "json" {
		writer = io.MultiWriter(os.Stdout, roller)
	}

	Use(newHandler(writer, cfg.Format, parseLevel(cfg.Level)))
	return nil
}

// Use replaces the process logger. Tests use it to capture output.
func Use(h slog.Handler) {
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// Close flushes and closes the rolling file, if any.
func Close() error {
	if roller == nil {
		return nil
	}
	return roller.Close()
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

func With(args ...any) *slog.Logger {
	if logger != nil {
		return logger.With(args...)
	}
	return slog.Default().With(args...)
}
