// Package logging builds the process logger: a text or JSON slog handler on
// stderr, optionally teed into a rotating file, with secrets redacted.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/security"
)

// Logger is the process logger together with the closer of its file sink.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// Close releases the rotating file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// New builds a redacting logger writing to stderr and, when cfg.File is set,
// to a size-rotated file.
func New(cfg config.LogConfig, redactor *security.Redactor) (*Logger, error) {
	return newLogger(os.Stderr, cfg, redactor)
}

func newLogger(out io.Writer, cfg config.LogConfig, redactor *security.Redactor) (*Logger, error) {
	var closer io.Closer
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: creating log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(out, opts)
	} else {
		inner = slog.NewTextHandler(out, opts)
	}

	if redactor == nil {
		redactor = security.NewRedactor()
	}
	return &Logger{
		Logger: slog.New(security.NewRedactingHandler(inner, redactor)),
		closer: closer,
	}, nil
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
