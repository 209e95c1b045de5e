package logger

import (
	"io"
	"log/slog"
	"os"
)

func New(env string) *slog.Logger {
	return NewWithWriter(os.Stdout, env)
}

// NewWithWriter пишет JSON-логи в w; в dev включён debug.
func NewWithWriter(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "paperstock")
}

// Discard — логгер для тестов.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
