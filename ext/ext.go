// Package ext defines the extension system for the dispatch core.
// Extensions are notified of delivery lifecycle events (event posted,
// delivery succeeded or failed, entry cached, cache replayed, shutdown)
// and can react to them — logging, metrics, alerting, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/cualquiercosa327/libkeen/task"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// EventPosted is called after an event is accepted for dispatch and
// registered in the ledger.
type EventPosted interface {
	OnEventPosted(ctx context.Context, t *task.Task) error
}

// DeliverySucceeded is called after a send is accepted by the collector.
type DeliverySucceeded interface {
	OnDeliverySucceeded(ctx context.Context, t *task.Task, elapsed time.Duration) error
}

// DeliveryFailed is called when a send attempt fails.
type DeliveryFailed interface {
	OnDeliveryFailed(ctx context.Context, t *task.Task, err error) error
}

// EventCached is called after a failed event is diverted into the
// retry cache.
type EventCached interface {
	OnEventCached(ctx context.Context, t *task.Task) error
}

// CacheReplayed is called after a cached entry is re-delivered and
// removed from the retry cache.
type CacheReplayed interface {
	OnCacheReplayed(ctx context.Context, t *task.Task) error
}

// CacheFlushed is called when a flush cycle pops entries from the
// retry cache, before the individual retry sends run.
type CacheFlushed interface {
	OnCacheFlushed(ctx context.Context, popped int) error
}

// Shutdown is called once when the core shuts down.
type Shutdown interface {
	OnShutdown(ctx context.Context)
}
