package middleware

import (
	"context"
	"log/slog"

	"github.com/cualquiercosa327/libkeen/task"
)

// Timeout returns middleware that enforces a per-delivery deadline.
// If the task has a non-zero Timeout, a context.WithTimeout wraps the
// send. When the deadline is exceeded the context is cancelled and the
// transport should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		if t.Timeout > 0 {
			logger.Debug("delivery timeout set",
				slog.String("event_id", t.EventID.String()),
				slog.Duration("timeout", t.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
