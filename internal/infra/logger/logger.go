package logger

import (
	"io"
	"log/slog"
	"os"
)

func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter — тот же JSON-логгер, но в произвольный writer (тесты, файлы прогонов).
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "stock-planner")
}

// ForRun привязывает к логгеру идентификатор прогона и имя задачи.
func ForRun(log *slog.Logger, runID, job string) *slog.Logger {
	return log.With("run_id", runID, "job", job)
}
