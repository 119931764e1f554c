package keen

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/cualquiercosa327/libkeen/cache"
	"github.com/cualquiercosa327/libkeen/cache/memory"
	"github.com/cualquiercosa327/libkeen/ext"
	"github.com/cualquiercosa327/libkeen/ledger"
	"github.com/cualquiercosa327/libkeen/middleware"
	"github.com/cualquiercosa327/libkeen/queue"
	"github.com/cualquiercosa327/libkeen/task"
	"github.com/cualquiercosa327/libkeen/transport"
	"github.com/cualquiercosa327/libkeen/worker"
)

// Core owns the dispatch machinery: the work queue, the worker pool, the
// in-flight task ledger, and the retry cache. Cores are safe for
// concurrent use.
//
// Most applications use the process-wide singleton through Client; New
// builds a private core for callers that need their own transport,
// store, or pool sizing.
type Core struct {
	config Config
	logger *slog.Logger
	sender transport.Sender
	store  cache.Store

	extensions  []ext.Extension
	middlewares []middleware.Middleware

	hooks  *ext.Registry
	ledger *ledger.Ledger
	queue  *queue.Queue
	pool   *worker.Pool
	exec   *worker.Executor

	// flushMu serializes Flush, FlushRetryCache sweeps, and Close so
	// only one pool restart cycle runs at a time.
	flushMu sync.Mutex

	// postMu fences posts against the flush cycle. Posters hold the
	// read side from ledger registration through queue submission, so
	// a drain can never see a task whose queue unit is still about to
	// land; Flush and Close hold the write side across stop, drain,
	// and restart.
	postMu sync.RWMutex

	mu        sync.Mutex
	closed    bool
	ownsStore bool
}

// New builds a core and starts its worker pool.
func New(opts ...Option) (*Core, error) {
	c := &Core{
		config:    DefaultConfig(),
		logger:    slog.Default(),
		ownsStore: true,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	if c.sender == nil {
		c.sender = transport.NewHTTP(
			transport.WithTimeout(c.config.SendTimeout),
			transport.WithLogger(c.logger),
		)
	}
	if c.store == nil {
		c.store = memory.New()
	}

	c.hooks = ext.NewRegistry(c.logger)
	for _, e := range c.extensions {
		c.hooks.Register(e)
	}

	mws := make([]middleware.Middleware, 0, 3+len(c.middlewares))
	mws = append(mws,
		middleware.Recover(c.logger),
		middleware.Logging(c.logger),
		middleware.Timeout(c.logger),
	)
	mws = append(mws, c.middlewares...)

	c.ledger = ledger.New()
	c.queue = queue.New()
	c.exec = worker.NewExecutor(c.sender, c.store, c.hooks, c.logger, mws...)
	c.pool = worker.NewPool(c.queue, c.logger)
	c.pool.Start(c.config.workerCount())

	c.logger.Info("dispatch core started",
		slog.String("collector", c.config.CollectorHost),
		slog.Int("workers", c.config.workerCount()))
	return c, nil
}

// PostEvent queues an event for asynchronous delivery to the collection
// named by eventName under the given project. It never blocks on the
// network and never panics; a delivery failure diverts the payload into
// the retry cache.
func (c *Core) PostEvent(projectID, writeKey, eventName, payload string) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while posting event",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if eventName == "" {
		return ErrEmptyEventName
	}

	// Hold the post fence until the queue unit has landed (or been
	// diverted). A concurrent Flush waits here, so every ledgered task
	// is either drained or owned by exactly one queue unit, never both.
	c.postMu.RLock()
	defer c.postMu.RUnlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	address := transport.BuildAddress(c.config.CollectorHost, c.config.APIVersion, projectID, writeKey, eventName)
	t := task.New(eventName, address, payload)
	t.Timeout = c.config.SendTimeout
	seq := c.ledger.Register(t)
	c.hooks.EmitEventPosted(context.Background(), t)

	err := c.queue.Post(func() {
		defer c.ledger.Remove(seq)
		c.exec.Execute(context.Background(), t)
	})
	if err != nil {
		// The queue is not accepting. Divert straight to the retry
		// cache so the event survives.
		c.ledger.Remove(seq)
		entry := cache.Entry{Address: t.Address, Payload: t.Payload}
		if pushErr := c.store.Push(context.Background(), entry); pushErr != nil {
			c.logger.Error("failed to cache event posted during shutdown",
				slog.String("event_name", eventName),
				slog.String("error", pushErr.Error()))
			return errors.Join(err, pushErr)
		}
		c.hooks.EmitEventCached(context.Background(), t)
		return nil
	}
	return nil
}

// FlushRetryCache schedules a sweep that reads up to count entries from
// the retry cache and queues each for re-delivery. The sweep runs on a
// worker, so the caller never blocks on store I/O. Entries stay cached
// until their replay succeeds, so a crash or another failure cannot lose
// them. count values below one are a no-op.
func (c *Core) FlushRetryCache(count int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()
	if count < 1 {
		return nil
	}
	return c.queue.Post(func() { c.sweepRetryCache(count) })
}

// sweepRetryCache pops up to count cached entries and schedules an
// independent replay for each. Store and scheduling failures leave the
// affected entries cached for the next sweep.
func (c *Core) sweepRetryCache(count int) {
	ctx := context.Background()
	entries, err := c.store.Pop(ctx, count)
	if err != nil {
		c.logger.Warn("failed to read retry cache", slog.String("error", err.Error()))
		return
	}
	if len(entries) == 0 {
		return
	}
	c.hooks.EmitCacheFlushed(ctx, len(entries))
	c.logger.Debug("replaying cached events", slog.Int("count", len(entries)))

	for _, entry := range entries {
		t := task.NewReplay(entry.Address, entry.Payload)
		t.Timeout = c.config.SendTimeout
		if err := c.queue.Post(func() {
			c.exec.Execute(context.Background(), t)
		}); err != nil {
			c.logger.Debug("queue stopped mid-sweep, entries stay cached",
				slog.String("error", err.Error()))
			return
		}
	}
}

// Flush stops the worker pool, waits for every worker to exit, then
// delivers the remaining ledgered tasks synchronously on the calling
// goroutine. Afterwards the queue is reset and the pool restarted at its
// configured size. Concurrent flushes are serialized.
func (c *Core) Flush() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	c.postMu.Lock()
	defer c.postMu.Unlock()

	if err := c.pool.Stop(context.Background()); err != nil {
		return err
	}
	c.drainLedger(context.Background())
	c.queue.Reset()
	c.pool.Start(c.config.workerCount())
	c.logger.Debug("flush complete", slog.Int("workers", c.config.workerCount()))
	return nil
}

// Close shuts the core down: the pool is stopped and joined, leftover
// ledgered tasks are delivered synchronously, and extensions are told to
// shut down. Close never panics and is safe to call more than once.
func (c *Core) Close() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.postMu.Lock()
	defer c.postMu.Unlock()

	ctx := context.Background()
	stopCtx := ctx
	if c.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(ctx, c.config.ShutdownTimeout)
		defer cancel()
	}
	if err := c.pool.Stop(stopCtx); err != nil {
		// A worker is still busy; skip the drain so it cannot race
		// a synchronous delivery of the same task.
		c.logger.Warn("closing with workers still busy", slog.String("error", err.Error()))
	} else {
		c.drainLedger(ctx)
	}

	c.hooks.EmitShutdown(ctx)
	if c.ownsStore {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("retry store close error", slog.String("error", err.Error()))
		}
	}
	c.logger.Info("dispatch core closed")
	return nil
}

// drainLedger delivers every ledgered task on the calling goroutine.
// The pool must be stopped and joined first.
func (c *Core) drainLedger(ctx context.Context) {
	tasks := c.ledger.Snapshot()
	if len(tasks) == 0 {
		c.ledger.Clear()
		return
	}
	c.logger.Debug("draining pending events", slog.Int("count", len(tasks)))
	for _, t := range tasks {
		c.exec.Execute(ctx, t)
	}
	c.ledger.Clear()
}

// CacheSize reports the number of entries in the retry cache.
func (c *Core) CacheSize() (int, error) {
	return c.store.Count(context.Background())
}

// PendingCount reports the number of ledgered tasks not yet settled.
func (c *Core) PendingCount() int { return c.ledger.Len() }

// Workers reports the current size of the worker pool.
func (c *Core) Workers() int { return c.pool.Size() }

// Logger returns the core's logger.
func (c *Core) Logger() *slog.Logger { return c.logger }

// Config returns a copy of the core's configuration.
func (c *Core) Config() Config { return c.config }
