package editor

import (
	"context"
	"log/slog"
)

// Level of a user notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier surfaces outcomes to the user.
type Notifier interface {
	Notify(ctx context.Context, level Level, title, message string)
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, level Level, title, message string) {
	var attrs []any
	if message != "" {
		attrs = append(attrs, "message", message)
	}

	if level == LevelError {
		n.logger.ErrorContext(ctx, title, attrs...)

		return
	}

	n.logger.InfoContext(ctx, title, append(attrs, "kind", string(level))...)
}
