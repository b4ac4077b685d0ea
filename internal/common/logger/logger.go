// Package logger configures structured JSON logging for all services.
// Entries carry a "service" and an "action" field; output goes to stdout and
// to a size-rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once sync.Once
	base *slog.Logger
)

// Init configures the process-wide logger exactly once. filePath may be
// empty, in which case only stdout is used.
func Init(service, filePath string) *slog.Logger {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if filePath != "" {
			_ = os.MkdirAll(filepath.Dir(filePath), 0o755)
			rot := &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    50, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
			}
			w = io.MultiWriter(os.Stdout, rot)
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
		base = slog.New(h).With("service", service)
	})
	return base
}

// New returns a child logger for one component, sharing the global handler.
func New(component string) *slog.Logger {
	if base == nil {
		Init("pizzeria-system", "")
	}
	return base.With("component", component)
}
