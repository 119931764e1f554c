package keen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cualquiercosa327/libkeen/cache/memory"
	"github.com/cualquiercosa327/libkeen/task"
	"github.com/cualquiercosa327/libkeen/transport"
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

func (s *stubSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCoreStartStopWithoutEvents(t *testing.T) {
	c, err := New(WithWorkers(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close did not return")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestPostEventDelivers(t *testing.T) {
	sender := &stubSender{}
	c, err := New(WithTransport(sender), WithWorkers(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if err := c.PostEvent("proj", "key", "purchase", `{"item":"widget"}`); err != nil {
		t.Fatalf("post: %v", err)
	}

	waitFor(t, func() bool { return sender.callCount() == 1 }, "event not delivered")
	waitFor(t, func() bool { return c.PendingCount() == 0 }, "ledger entry not settled")

	want := transport.BuildAddress("api.keen.io", "3.0", "proj", "key", "purchase")
	sender.mu.Lock()
	got := sender.calls[0]
	sender.mu.Unlock()
	if got != want {
		t.Errorf("delivered to %q, want %q", got, want)
	}

	n, err := c.CacheSize()
	if err != nil {
		t.Fatalf("cache size: %v", err)
	}
	if n != 0 {
		t.Errorf("cache holds %d entries after successful delivery", n)
	}
}

func TestPostEventFailureLandsInCacheOnce(t *testing.T) {
	sender := &stubSender{err: errors.New("collector down")}
	store := memory.New()
	c, err := New(WithTransport(sender), WithRetryStore(store), WithWorkers(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if err := c.PostEvent("proj", "key", "purchase", `{"item":"widget"}`); err != nil {
		t.Fatalf("post: %v", err)
	}

	waitFor(t, func() bool {
		n, _ := c.CacheSize()
		return n == 1
	}, "failed event not cached")

	entries, err := store.Pop(context.Background(), 10)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 cached entry, got %d", len(entries))
	}
	want := transport.BuildAddress("api.keen.io", "3.0", "proj", "key", "purchase")
	if entries[0].Address != want {
		t.Errorf("cached address = %q, want %q", entries[0].Address, want)
	}
	if entries[0].Payload != `{"item":"widget"}` {
		t.Errorf("cached payload = %q", entries[0].Payload)
	}
}

func TestFlushRetryCacheReplaysBatch(t *testing.T) {
	sender := &stubSender{err: errors.New("collector down")}
	store := memory.New()
	c, err := New(WithTransport(sender), WithRetryStore(store), WithWorkers(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	for _, name := range []string{"a", "b", "c"} {
		if err := c.PostEvent("proj", "key", name, `{}`); err != nil {
			t.Fatalf("post %s: %v", name, err)
		}
	}
	waitFor(t, func() bool {
		n, _ := c.CacheSize()
		return n == 3
	}, "events not cached")

	sender.setErr(nil)
	if err := c.FlushRetryCache(2); err != nil {
		t.Fatalf("flush retry cache: %v", err)
	}

	waitFor(t, func() bool {
		n, _ := c.CacheSize()
		return n == 1
	}, "replayed entries not removed")

	// The remaining entry stays put until the next flush.
	time.Sleep(20 * time.Millisecond)
	n, err := c.CacheSize()
	if err != nil {
		t.Fatalf("cache size: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry left, got %d", n)
	}
}

func TestFlushRetryCacheZeroCount(t *testing.T) {
	sender := &stubSender{}
	c, err := New(WithTransport(sender), WithWorkers(1))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()
	if err := c.FlushRetryCache(0); err != nil {
		t.Fatalf("flush with zero count: %v", err)
	}
	if err := c.FlushRetryCache(-3); err != nil {
		t.Fatalf("flush with negative count: %v", err)
	}
}

func TestFlushDrainsAndRestartsPool(t *testing.T) {
	sender := &stubSender{}
	c, err := New(WithTransport(sender), WithWorkers(3))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	for range 10 {
		if err := c.PostEvent("proj", "key", "signup", `{}`); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := c.PendingCount(); got != 0 {
		t.Errorf("ledger holds %d tasks after flush", got)
	}
	if got := sender.callCount(); got != 10 {
		t.Errorf("delivered %d events, want 10", got)
	}
	if got := c.Workers(); got != 3 {
		t.Errorf("pool size after flush = %d, want 3", got)
	}

	// The restarted pool must accept and deliver new work.
	if err := c.PostEvent("proj", "key", "signup", `{}`); err != nil {
		t.Fatalf("post after flush: %v", err)
	}
	waitFor(t, func() bool { return sender.callCount() == 11 }, "post after flush not delivered")
}

// gateExtension pauses a post between ledger registration and queue
// submission, exposing the window a concurrent flush must not cut
// through.
type gateExtension struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateExtension) Name() string { return "gate" }

func (g *gateExtension) OnEventPosted(context.Context, *task.Task) error {
	g.entered <- struct{}{}
	<-g.release
	return nil
}

func TestPostEventRacingFlushDeliversOnce(t *testing.T) {
	gate := &gateExtension{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sender := &stubSender{}
	c, err := New(WithTransport(sender), WithWorkers(2), WithExtension(gate))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	postDone := make(chan error, 1)
	go func() {
		postDone <- c.PostEvent("proj", "key", "purchase", `{"n":1}`)
	}()
	<-gate.entered

	flushDone := make(chan error, 1)
	go func() { flushDone <- c.Flush() }()

	// The flush must wait for the paused post to land its queue unit.
	select {
	case <-flushDone:
		t.Fatal("flush completed while a post was mid-submission")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	if err := <-postDone; err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := <-flushDone; err != nil {
		t.Fatalf("flush: %v", err)
	}

	waitFor(t, func() bool { return sender.callCount() >= 1 }, "event not delivered")
	time.Sleep(50 * time.Millisecond)
	if got := sender.callCount(); got != 1 {
		t.Fatalf("event delivered %d times, want exactly 1", got)
	}
	if got := c.PendingCount(); got != 0 {
		t.Errorf("ledger holds %d tasks after flush", got)
	}
	n, err := c.CacheSize()
	if err != nil {
		t.Fatalf("cache size: %v", err)
	}
	if n != 0 {
		t.Errorf("delivered event also landed in the retry cache, %d entries", n)
	}
}

func TestPostEventValidation(t *testing.T) {
	sender := &stubSender{}
	c, err := New(WithTransport(sender), WithWorkers(1))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.PostEvent("proj", "key", "", `{}`); !errors.Is(err, ErrEmptyEventName) {
		t.Errorf("empty name error = %v, want ErrEmptyEventName", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.PostEvent("proj", "key", "purchase", `{}`); !errors.Is(err, ErrClosed) {
		t.Errorf("post after close error = %v, want ErrClosed", err)
	}
	if err := c.FlushRetryCache(1); !errors.Is(err, ErrClosed) {
		t.Errorf("flush after close error = %v, want ErrClosed", err)
	}
	if err := c.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("drain after close error = %v, want ErrClosed", err)
	}
}

func TestCloseDrainsPendingEvents(t *testing.T) {
	sender := &stubSender{}
	c, err := New(WithTransport(sender), WithWorkers(1))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for range 5 {
		if err := c.PostEvent("proj", "key", "signup", `{}`); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := sender.callCount(); got != 5 {
		t.Errorf("delivered %d events across close, want 5", got)
	}
}
