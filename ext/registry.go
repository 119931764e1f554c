package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/cualquiercosa327/libkeen/task"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type eventPostedEntry struct {
	name string
	hook EventPosted
}

type deliverySucceededEntry struct {
	name string
	hook DeliverySucceeded
}

type deliveryFailedEntry struct {
	name string
	hook DeliveryFailed
}

type eventCachedEntry struct {
	name string
	hook EventCached
}

type cacheReplayedEntry struct {
	name string
	hook CacheReplayed
}

type cacheFlushedEntry struct {
	name string
	hook CacheFlushed
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	eventPosted       []eventPostedEntry
	deliverySucceeded []deliverySucceededEntry
	deliveryFailed    []deliveryFailedEntry
	eventCached       []eventCachedEntry
	cacheReplayed     []cacheReplayedEntry
	cacheFlushed      []cacheFlushedEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(EventPosted); ok {
		r.eventPosted = append(r.eventPosted, eventPostedEntry{name, h})
	}
	if h, ok := e.(DeliverySucceeded); ok {
		r.deliverySucceeded = append(r.deliverySucceeded, deliverySucceededEntry{name, h})
	}
	if h, ok := e.(DeliveryFailed); ok {
		r.deliveryFailed = append(r.deliveryFailed, deliveryFailedEntry{name, h})
	}
	if h, ok := e.(EventCached); ok {
		r.eventCached = append(r.eventCached, eventCachedEntry{name, h})
	}
	if h, ok := e.(CacheReplayed); ok {
		r.cacheReplayed = append(r.cacheReplayed, cacheReplayedEntry{name, h})
	}
	if h, ok := e.(CacheFlushed); ok {
		r.cacheFlushed = append(r.cacheFlushed, cacheFlushedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Emitters
// ──────────────────────────────────────────────────

// EmitEventPosted notifies all extensions that implement EventPosted.
func (r *Registry) EmitEventPosted(ctx context.Context, t *task.Task) {
	for _, e := range r.eventPosted {
		if err := e.hook.OnEventPosted(ctx, t); err != nil {
			r.logHookError("OnEventPosted", e.name, err)
		}
	}
}

// EmitDeliverySucceeded notifies all extensions that implement
// DeliverySucceeded.
func (r *Registry) EmitDeliverySucceeded(ctx context.Context, t *task.Task, elapsed time.Duration) {
	for _, e := range r.deliverySucceeded {
		if err := e.hook.OnDeliverySucceeded(ctx, t, elapsed); err != nil {
			r.logHookError("OnDeliverySucceeded", e.name, err)
		}
	}
}

// EmitDeliveryFailed notifies all extensions that implement DeliveryFailed.
func (r *Registry) EmitDeliveryFailed(ctx context.Context, t *task.Task, sendErr error) {
	for _, e := range r.deliveryFailed {
		if err := e.hook.OnDeliveryFailed(ctx, t, sendErr); err != nil {
			r.logHookError("OnDeliveryFailed", e.name, err)
		}
	}
}

// EmitEventCached notifies all extensions that implement EventCached.
func (r *Registry) EmitEventCached(ctx context.Context, t *task.Task) {
	for _, e := range r.eventCached {
		if err := e.hook.OnEventCached(ctx, t); err != nil {
			r.logHookError("OnEventCached", e.name, err)
		}
	}
}

// EmitCacheReplayed notifies all extensions that implement CacheReplayed.
func (r *Registry) EmitCacheReplayed(ctx context.Context, t *task.Task) {
	for _, e := range r.cacheReplayed {
		if err := e.hook.OnCacheReplayed(ctx, t); err != nil {
			r.logHookError("OnCacheReplayed", e.name, err)
		}
	}
}

// EmitCacheFlushed notifies all extensions that implement CacheFlushed.
func (r *Registry) EmitCacheFlushed(ctx context.Context, popped int) {
	for _, e := range r.cacheFlushed {
		if err := e.hook.OnCacheFlushed(ctx, popped); err != nil {
			r.logHookError("OnCacheFlushed", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		e.hook.OnShutdown(ctx)
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block dispatch.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
