package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/cualquiercosa327/libkeen/task"
)

// Logging returns middleware that logs each delivery attempt.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		logger.Debug("delivery started",
			slog.String("event_id", t.EventID.String()),
			slog.String("event_name", t.Name),
			slog.String("address", t.Address),
			slog.Bool("replay", t.Replay),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("delivery failed",
				slog.String("event_id", t.EventID.String()),
				slog.String("event_name", t.Name),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("delivery completed",
				slog.String("event_id", t.EventID.String()),
				slog.String("event_name", t.Name),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
