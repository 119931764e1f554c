package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cualquiercosa327/libkeen/id"
	"github.com/cualquiercosa327/libkeen/queue"
)

// Pool runs a fixed set of goroutines that drain a shared work queue.
// Workers exit when the queue is stopped; Stop joins them.
type Pool struct {
	queue  *queue.Queue
	logger *slog.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	size    int
}

// NewPool builds a pool over q. Call Start to launch workers.
func NewPool(q *queue.Queue, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{queue: q, logger: logger}
}

// Start launches n workers. Values below one are raised to one. Start is a
// no-op while the pool is already running.
func (p *Pool) Start(n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.size = n
	for range n {
		workerID := id.NewWorkerID()
		p.wg.Add(1)
		go p.run(workerID)
	}
	p.logger.Debug("worker pool started", slog.Int("workers", n))
}

// Stop halts the queue and joins all workers. It returns early with the
// context error if ctx expires before every worker has exited; in that case
// a worker may still be finishing its current unit. Stop is idempotent.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.size = 0
	p.mu.Unlock()

	p.queue.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Debug("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out", slog.String("error", ctx.Err().Error()))
		return ctx.Err()
	}
}

// Size returns the number of workers the pool was started with, or zero
// when stopped.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Running reports whether the pool has running workers.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pool) run(workerID id.WorkerID) {
	defer p.wg.Done()
	p.logger.Debug("worker started", slog.String("worker_id", workerID.String()))
	for {
		fn, ok := p.queue.Next()
		if !ok {
			p.logger.Debug("worker exiting", slog.String("worker_id", workerID.String()))
			return
		}
		fn()
	}
}
