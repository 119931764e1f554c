package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cualquiercosa327/libkeen/cache"
	"github.com/cualquiercosa327/libkeen/ext"
	"github.com/cualquiercosa327/libkeen/middleware"
	"github.com/cualquiercosa327/libkeen/task"
	"github.com/cualquiercosa327/libkeen/transport"
)

// Executor carries out a single delivery attempt for a task. A failed
// first-time delivery diverts the payload into the retry cache; a failed
// replay leaves the cached entry untouched so a later sweep can retry it.
type Executor struct {
	sender transport.Sender
	cache  cache.Store
	hooks  *ext.Registry
	chain  middleware.Middleware
	logger *slog.Logger
}

// NewExecutor builds an executor around the given sender and retry store.
// Middleware wraps every delivery in registration order.
func NewExecutor(sender transport.Sender, store cache.Store, hooks *ext.Registry, logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if hooks == nil {
		hooks = ext.NewRegistry(logger)
	}
	return &Executor{
		sender: sender,
		cache:  store,
		hooks:  hooks,
		chain:  middleware.Chain(mws...),
		logger: logger,
	}
}

// Execute runs the delivery for t and settles the outcome. It never returns
// an error: failures are absorbed into the retry cache or logged.
func (e *Executor) Execute(ctx context.Context, t *task.Task) {
	start := time.Now()
	err := e.chain(ctx, t, func(ctx context.Context) error {
		return e.sender.Send(ctx, t.Address, t.Payload)
	})
	elapsed := time.Since(start)

	if err == nil {
		e.hooks.EmitDeliverySucceeded(ctx, t, elapsed)
		if t.Replay {
			e.settleReplay(ctx, t)
		}
		return
	}

	e.hooks.EmitDeliveryFailed(ctx, t, err)

	if t.Replay {
		// The entry is still in the cache; nothing to do until the
		// next sweep.
		e.logger.Debug("cached event still undeliverable",
			slog.String("event_id", t.EventID.String()),
			slog.String("address", t.Address),
			slog.String("error", err.Error()))
		return
	}

	entry := cache.Entry{Address: t.Address, Payload: t.Payload}
	if pushErr := e.cache.Push(ctx, entry); pushErr != nil {
		// The event could not be delivered or cached. This is the
		// only path where data is lost.
		e.logger.Error("failed to cache undelivered event",
			slog.String("event_id", t.EventID.String()),
			slog.String("event_name", t.Name),
			slog.String("address", t.Address),
			slog.String("send_error", err.Error()),
			slog.String("cache_error", pushErr.Error()))
		return
	}
	e.hooks.EmitEventCached(ctx, t)
	e.logger.Debug("event cached for retry",
		slog.String("event_id", t.EventID.String()),
		slog.String("event_name", t.Name))
}

// settleReplay removes the delivered entry from the retry cache. A removal
// failure is logged but not retried: the worst case is one duplicate send
// on a later sweep.
func (e *Executor) settleReplay(ctx context.Context, t *task.Task) {
	entry := cache.Entry{Address: t.Address, Payload: t.Payload}
	if err := e.cache.Remove(ctx, entry); err != nil {
		e.logger.Warn("failed to remove replayed event from cache",
			slog.String("event_id", t.EventID.String()),
			slog.String("address", t.Address),
			slog.String("error", err.Error()))
		return
	}
	e.hooks.EmitCacheReplayed(ctx, t)
}
