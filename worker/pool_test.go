package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cualquiercosa327/libkeen/queue"
)

func TestPoolExecutesPostedWork(t *testing.T) {
	q := queue.New()
	pool := NewPool(q, slog.Default())
	pool.Start(4)

	var done sync.WaitGroup
	var ran atomic.Int64
	for range 20 {
		done.Add(1)
		err := q.Post(func() {
			ran.Add(1)
			done.Done()
		})
		if err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	done.Wait()

	if got := ran.Load(); got != 20 {
		t.Fatalf("expected 20 units executed, got %d", got)
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestPoolStopJoinsWorkers(t *testing.T) {
	q := queue.New()
	pool := NewPool(q, slog.Default())
	pool.Start(2)

	started := make(chan struct{})
	release := make(chan struct{})
	if err := q.Post(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("post: %v", err)
	}
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("stop returned while a worker was still busy")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-stopped; err != nil {
		t.Fatalf("stop: %v", err)
	}
	if pool.Running() {
		t.Error("pool still reports running after stop")
	}
}

func TestPoolStopTimeout(t *testing.T) {
	q := queue.New()
	pool := NewPool(q, slog.Default())
	pool.Start(1)

	started := make(chan struct{})
	release := make(chan struct{})
	if err := q.Post(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("post: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Stop(ctx); err == nil {
		t.Fatal("expected context error from stop")
	}
	close(release)
}

func TestPoolStartClampsSize(t *testing.T) {
	q := queue.New()
	pool := NewPool(q, slog.Default())
	pool.Start(0)
	if pool.Size() != 1 {
		t.Fatalf("expected size 1, got %d", pool.Size())
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if pool.Size() != 0 {
		t.Fatalf("expected size 0 after stop, got %d", pool.Size())
	}
}

func TestPoolRestartAfterReset(t *testing.T) {
	q := queue.New()
	pool := NewPool(q, slog.Default())
	pool.Start(2)
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	q.Reset()
	pool.Start(2)

	done := make(chan struct{})
	if err := q.Post(func() { close(done) }); err != nil {
		t.Fatalf("post after restart: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("restarted pool did not execute work")
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
