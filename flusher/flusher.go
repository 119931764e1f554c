// Package flusher drives periodic retry-cache sweeps against a dispatch
// core. A flusher wakes on an interval or a cron schedule, checks the
// retry cache, and asks the core to replay a batch of cached events.
// When the cache stays empty it backs off to longer waits.
package flusher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/cualquiercosa327/libkeen/backoff"
)

// cronParser accepts standard five-field cron expressions plus
// descriptors like @hourly.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Core is the surface the flusher needs from a dispatch core.
type Core interface {
	FlushRetryCache(count int) error
	CacheSize() (int, error)
}

// Flusher periodically replays cached events. Build one with New, then
// Start it; Stop joins the sweep goroutine.
type Flusher struct {
	core     Core
	logger   *slog.Logger
	batch    int
	interval time.Duration
	schedule cron.Schedule
	idle     backoff.Strategy
	limiter  *rate.Limiter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Flusher.
type Option func(*Flusher) error

// WithBatchSize sets how many cached entries each sweep replays.
func WithBatchSize(n int) Option {
	return func(f *Flusher) error {
		if n < 1 {
			return fmt.Errorf("keen/flusher: batch size must be positive, got %d", n)
		}
		f.batch = n
		return nil
	}
}

// WithInterval sets a fixed wait between sweeps. Ignored when a cron
// schedule is set.
func WithInterval(d time.Duration) Option {
	return func(f *Flusher) error {
		if d <= 0 {
			return fmt.Errorf("keen/flusher: interval must be positive, got %s", d)
		}
		f.interval = d
		return nil
	}
}

// WithSchedule sets a cron expression for sweep timing, overriding the
// interval. Standard five-field expressions and descriptors such as
// "@every 5m" or "@hourly" are accepted.
func WithSchedule(expr string) Option {
	return func(f *Flusher) error {
		sched, err := cronParser.Parse(expr)
		if err != nil {
			return fmt.Errorf("keen/flusher: invalid schedule %q: %w", expr, err)
		}
		f.schedule = sched
		return nil
	}
}

// WithIdleBackoff sets the strategy used to stretch the wait while the
// retry cache stays empty.
func WithIdleBackoff(s backoff.Strategy) Option {
	return func(f *Flusher) error {
		f.idle = s
		return nil
	}
}

// WithRateLimit caps sweep frequency to r sweeps per second with the
// given burst. Useful when several flushers share one collector.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(f *Flusher) error {
		f.limiter = rate.NewLimiter(r, burst)
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flusher) error {
		f.logger = l
		return nil
	}
}

// New builds a flusher over core. The default sweeps 100 entries every
// minute with no idle backoff.
func New(core Core, opts ...Option) (*Flusher, error) {
	f := &Flusher{
		core:     core,
		logger:   slog.Default(),
		batch:    100,
		interval: time.Minute,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Start launches the sweep goroutine. It is a no-op while running.
func (f *Flusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	f.running = true
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.wg.Add(1)
	go f.run(ctx)
	f.logger.Debug("flusher started", slog.Int("batch", f.batch))
}

// Stop halts sweeping and joins the goroutine. Idempotent.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.cancel()
	f.mu.Unlock()

	f.wg.Wait()
	f.logger.Debug("flusher stopped")
}

func (f *Flusher) run(ctx context.Context) {
	defer f.wg.Done()
	idleCycles := 0
	for {
		wait := f.nextWait(idleCycles)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return
			}
		}

		swept, err := f.sweep()
		if err != nil {
			f.logger.Warn("retry sweep failed", slog.String("error", err.Error()))
			continue
		}
		if swept {
			idleCycles = 0
		} else {
			idleCycles++
		}
	}
}

// sweep runs one replay cycle. It reports whether any entries were
// present to replay.
func (f *Flusher) sweep() (bool, error) {
	size, err := f.core.CacheSize()
	if err != nil {
		return false, err
	}
	if size == 0 {
		return false, nil
	}
	n := f.batch
	if size < n {
		n = size
	}
	f.logger.Debug("sweeping retry cache", slog.Int("cached", size), slog.Int("batch", n))
	if err := f.core.FlushRetryCache(n); err != nil {
		return true, err
	}
	return true, nil
}

// nextWait picks the delay before the next sweep. A cron schedule wins
// over the interval; idle backoff stretches the interval while the cache
// stays empty.
func (f *Flusher) nextWait(idleCycles int) time.Duration {
	if f.schedule != nil {
		return time.Until(f.schedule.Next(time.Now()))
	}
	if f.idle != nil && idleCycles > 0 {
		d := f.idle.Delay(idleCycles)
		if d > f.interval {
			return d
		}
	}
	return f.interval
}
