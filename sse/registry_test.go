package sse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/eventrelay/errors"
)

func TestSubscriber_SendAndReceive(t *testing.T) {
	s := NewSubscriber("sub-1", WithMetadata("user_agent", "test"))

	if s.ID() != "sub-1" {
		t.Errorf("expected ID 'sub-1', got %q", s.ID())
	}
	if s.Metadata()["user_agent"] != "test" {
		t.Errorf("expected metadata, got %v", s.Metadata())
	}
	if err := s.Send(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-s.Events():
		if string(msg) != "hello" {
			t.Errorf("expected 'hello', got %q", msg)
		}
	default:
		t.Error("expected message in queue")
	}
}

func TestSubscriber_SendTimeout(t *testing.T) {
	s := NewSubscriber("slow", WithQueueSize(1))
	if err := s.Send(context.Background(), []byte("1")); err != nil {
		t.Fatalf("first send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := s.Send(ctx, []byte("2"))
	if !errors.Is(err, ErrSendTimeout) {
		t.Fatalf("expected ErrSendTimeout, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("send returned before its deadline")
	}
}

func TestSubscriber_SendAfterClose(t *testing.T) {
	s := NewSubscriber("gone")
	s.Close()
	s.Close()

	if !s.Closed() {
		t.Fatal("expected closed")
	}
	if s.Reason() != ReasonUnregistered {
		t.Errorf("reason = %q", s.Reason())
	}
	if err := s.Send(context.Background(), []byte("x")); !errors.Is(err, ErrSubscriberClosed) {
		t.Errorf("expected ErrSubscriberClosed, got %v", err)
	}
}

func TestSubscriber_CloseUnblocksSend(t *testing.T) {
	s := NewSubscriber("blocked", WithQueueSize(1))
	_ = s.Send(context.Background(), []byte("fill"))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Send(context.Background(), []byte("wait")) }()

	time.Sleep(10 * time.Millisecond)
	s.closeWith(ReasonShutdown)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSubscriberClosed) {
			t.Errorf("expected ErrSubscriberClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not return after Close")
	}
	if s.Reason() != ReasonShutdown {
		t.Errorf("first reason must stick, got %q", s.Reason())
	}
}

func TestRegistry_RegisterUnique(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := reg.Register()
		if seen[s.ID()] {
			t.Fatalf("duplicate identity %q", s.ID())
		}
		seen[s.ID()] = true
	}
	if reg.Count() != 100 {
		t.Errorf("expected 100 subscribers, got %d", reg.Count())
	}
}

func TestRegistry_RegisterQueueSize(t *testing.T) {
	reg := NewRegistry(WithRegistryQueueSize(3))
	s := reg.Register()
	if cap(s.events) != 3 {
		t.Errorf("queue size = %d, want 3", cap(s.events))
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	a := reg.Register()
	b := reg.Register()

	if !reg.Unregister(a.ID()) {
		t.Fatal("first unregister should remove")
	}
	if reg.Unregister(a.ID()) {
		t.Error("second unregister must be a no-op")
	}
	if reg.Unregister("never-registered") {
		t.Error("unknown identity must be a no-op")
	}

	if reg.Count() != 1 {
		t.Errorf("expected 1 subscriber, got %d", reg.Count())
	}
	if reg.Get(b.ID()) != b {
		t.Error("other subscriber must be unaffected")
	}
	if b.Closed() {
		t.Error("other subscriber must stay open")
	}
	if !a.Closed() {
		t.Error("unregistered subscriber must be closed")
	}
}

func TestRegistry_Attach(t *testing.T) {
	reg := NewRegistry()
	s := NewSubscriber("fixed")

	if err := reg.Attach(s); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	dup := NewSubscriber("fixed")
	err := reg.Attach(dup)
	if !apperrors.IsCode(err, apperrors.ErrCodeRegistryInvariant) {
		t.Fatalf("expected registry invariant error, got %v", err)
	}
	if reg.Get("fixed") != s {
		t.Error("duplicate attach must not replace the existing handle")
	}
	if reg.Count() != 1 {
		t.Errorf("expected 1 subscriber, got %d", reg.Count())
	}

	if err := reg.Attach(nil); !apperrors.IsCode(err, apperrors.ErrCodeRegistryInvariant) {
		t.Errorf("nil attach: expected invariant error, got %v", err)
	}
	if err := reg.Attach(NewSubscriber("")); !apperrors.IsCode(err, apperrors.ErrCodeRegistryInvariant) {
		t.Errorf("empty id: expected invariant error, got %v", err)
	}

	closed := NewSubscriber("closed")
	closed.Close()
	if err := reg.Attach(closed); !errors.Is(err, ErrSubscriberClosed) {
		t.Errorf("closed attach: expected ErrSubscriberClosed, got %v", err)
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	reg := NewRegistry()
	a := reg.Register()
	reg.Register()

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2, got %d", len(snap))
	}

	reg.Unregister(a.ID())
	reg.Register()
	if len(snap) != 2 {
		t.Error("snapshot must not change after registry mutation")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry()
	subs := []*Subscriber{reg.Register(), reg.Register(), reg.Register()}

	reg.CloseAll()

	if reg.Count() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Count())
	}
	for _, s := range subs {
		select {
		case <-s.Done():
		default:
			t.Errorf("subscriber %s not signalled", s.ID())
		}
		if s.Reason() != ReasonShutdown {
			t.Errorf("reason = %q", s.Reason())
		}
	}
}

func TestRegistry_ClosedRejectsMembers(t *testing.T) {
	reg := NewRegistry()
	reg.CloseAll()

	late := reg.Register()
	if !late.Closed() || late.Reason() != ReasonShutdown {
		t.Errorf("register after CloseAll: closed=%v reason=%q", late.Closed(), late.Reason())
	}
	select {
	case <-late.Done():
	default:
		t.Error("late subscriber not signalled")
	}
	if err := reg.Attach(NewSubscriber("late")); !errors.Is(err, ErrSubscriberClosed) {
		t.Errorf("attach after CloseAll: expected ErrSubscriberClosed, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("closed registry count = %d, want 0", reg.Count())
	}

	reg.Reopen()
	if s := reg.Register(); s.Closed() || reg.Count() != 1 {
		t.Errorf("reopened registry: closed=%v count=%d", s.Closed(), reg.Count())
	}
}

func TestRegistry_ConcurrentSnapshot(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := reg.Register()
				seen := make(map[string]bool)
				for _, m := range reg.Snapshot() {
					if seen[m.ID()] {
						t.Errorf("duplicate %s in snapshot", m.ID())
						return
					}
					seen[m.ID()] = true
				}
				reg.Unregister(s.ID())
			}
		}()
	}
	wg.Wait()
	if reg.Count() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Count())
	}
}
