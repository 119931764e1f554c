package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/cualquiercosa327/libkeen/task"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace,
// so a broken transport or store can never take down the host
// application.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("delivery handler panicked",
					slog.String("event_id", t.EventID.String()),
					slog.String("event_name", t.Name),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic delivering event %s: %v", t.EventID, r)
			}
		}()
		return next(ctx)
	}
}
