package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cualquiercosa327/libkeen/cache"
	"github.com/cualquiercosa327/libkeen/cache/memory"
	"github.com/cualquiercosa327/libkeen/ext"
	"github.com/cualquiercosa327/libkeen/middleware"
	"github.com/cualquiercosa327/libkeen/task"
)

type stubSender struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (s *stubSender) Send(_ context.Context, address, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, address)
	return s.err
}

func (s *stubSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// recordingExtension counts lifecycle notifications.
type recordingExtension struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	cached    int
	replayed  int
}

func (r *recordingExtension) Name() string { return "recording" }

func (r *recordingExtension) OnDeliverySucceeded(context.Context, *task.Task, time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded++
	return nil
}

func (r *recordingExtension) OnDeliveryFailed(context.Context, *task.Task, error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
	return nil
}

func (r *recordingExtension) OnEventCached(context.Context, *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached++
	return nil
}

func (r *recordingExtension) OnCacheReplayed(context.Context, *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replayed++
	return nil
}

func (r *recordingExtension) counts() (succeeded, failed, cached, replayed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded, r.failed, r.cached, r.replayed
}

func TestExecutorDeliverySuccess(t *testing.T) {
	sender := &stubSender{}
	store := memory.New()
	exec := NewExecutor(sender, store, nil, slog.Default())

	exec.Execute(context.Background(), task.New("purchase", "https://example.test/e", `{"n":1}`))

	if sender.callCount() != 1 {
		t.Fatalf("expected 1 send, got %d", sender.callCount())
	}
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty cache after success, got %d entries", n)
	}
}

func TestExecutorDeliveryFailureCaches(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	store := memory.New()
	exec := NewExecutor(sender, store, nil, slog.Default())

	exec.Execute(context.Background(), task.New("purchase", "https://example.test/e", `{"n":1}`))

	entries, err := store.Pop(context.Background(), 10)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 cached entry, got %d", len(entries))
	}
	if entries[0].Address != "https://example.test/e" {
		t.Errorf("cached address = %q", entries[0].Address)
	}
	if entries[0].Payload != `{"n":1}` {
		t.Errorf("cached payload = %q", entries[0].Payload)
	}
}

func TestExecutorReplaySuccessRemovesEntry(t *testing.T) {
	sender := &stubSender{}
	store := memory.New()
	entry := cache.Entry{Address: "https://example.test/e", Payload: `{"n":1}`}
	if err := store.Push(context.Background(), entry); err != nil {
		t.Fatalf("push: %v", err)
	}
	rec := &recordingExtension{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(rec)
	exec := NewExecutor(sender, store, reg, slog.Default())

	exec.Execute(context.Background(), task.NewReplay(entry.Address, entry.Payload))

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected entry removed after successful replay, got %d", n)
	}
	_, _, _, replayed := rec.counts()
	if replayed != 1 {
		t.Errorf("cache replayed hook fired %d times", replayed)
	}
}

func TestExecutorReplayFailureKeepsEntry(t *testing.T) {
	sender := &stubSender{err: errors.New("still down")}
	store := memory.New()
	entry := cache.Entry{Address: "https://example.test/e", Payload: `{"n":1}`}
	if err := store.Push(context.Background(), entry); err != nil {
		t.Fatalf("push: %v", err)
	}
	exec := NewExecutor(sender, store, nil, slog.Default())

	exec.Execute(context.Background(), task.NewReplay(entry.Address, entry.Payload))

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected entry retained after failed replay, got %d", n)
	}
}

func TestExecutorRunsMiddleware(t *testing.T) {
	sender := &stubSender{}
	store := memory.New()
	var seen []string
	mw := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *task.Task, next middleware.Handler) error {
			seen = append(seen, name)
			return next(ctx)
		}
	}
	exec := NewExecutor(sender, store, nil, slog.Default(), mw("outer"), mw("inner"))

	exec.Execute(context.Background(), task.New("signup", "https://example.test/e", `{}`))

	if len(seen) != 2 || seen[0] != "outer" || seen[1] != "inner" {
		t.Fatalf("middleware order = %v", seen)
	}
}

func TestExecutorEmitsHooks(t *testing.T) {
	sender := &stubSender{err: errors.New("boom")}
	store := memory.New()
	rec := &recordingExtension{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(rec)
	exec := NewExecutor(sender, store, reg, slog.Default())

	exec.Execute(context.Background(), task.New("purchase", "https://example.test/e", `{}`))

	succeeded, failed, cached, _ := rec.counts()
	if succeeded != 0 {
		t.Errorf("delivery succeeded hook fired %d times", succeeded)
	}
	if failed != 1 {
		t.Errorf("delivery failed hook fired %d times", failed)
	}
	if cached != 1 {
		t.Errorf("event cached hook fired %d times", cached)
	}

	sender.err = nil
	exec.Execute(context.Background(), task.New("purchase", "https://example.test/e", `{}`))
	succeeded, _, _, _ = rec.counts()
	if succeeded != 1 {
		t.Errorf("delivery succeeded hook fired %d times", succeeded)
	}
}
