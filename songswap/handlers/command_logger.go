package handlers

import (
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
)

// WrapWithLogging wraps a command handler with timing and outcome logging.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		err := h(e)
		duration := time.Since(start)

		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.Duration("took", duration),
		}

		if err != nil {
			slog.Error("Command failed", append(attrs, slog.Any("error", err))...)
		} else if duration > 2*time.Second {
			slog.Warn("Command executed slowly", attrs...)
		} else {
			slog.Info("Command completed", attrs...)
		}
		return err
	}
}

// WrapComponentWithLogging wraps a component handler the same way.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		start := time.Now()
		err := h(e)
		duration := time.Since(start)

		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.Duration("took", duration),
		}

		if err != nil {
			slog.Error("Component interaction failed", append(attrs, slog.Any("error", err))...)
		} else {
			slog.Info("Component interaction completed", attrs...)
		}
		return err
	}
}

// WrapModalWithLogging wraps a modal submit handler the same way.
func WrapModalWithLogging(name string, h handler.ModalHandler) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		start := time.Now()
		err := h(e)
		duration := time.Since(start)

		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.Duration("took", duration),
		}

		if err != nil {
			slog.Error("Modal submit failed", append(attrs, slog.Any("error", err))...)
		} else {
			slog.Info("Modal submit completed", attrs...)
		}
		return err
	}
}
