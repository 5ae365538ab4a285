package sse

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrSubscriberClosed is returned when sending to a closed subscriber.
	ErrSubscriberClosed = errors.New("sse: subscriber closed")
	// ErrSendTimeout is returned when a subscriber's queue stays full past the send deadline.
	ErrSendTimeout = errors.New("sse: send timed out")

	errQueueFull = errors.New("sse: queue full")
)

// CloseReason records why a subscriber stream ended.
type CloseReason string

const (
	ReasonNone           CloseReason = ""
	ReasonCompleted      CloseReason = "completed"
	ReasonTimeout        CloseReason = "timeout"
	ReasonDeliveryFailed CloseReason = "delivery_failed"
	ReasonUnregistered   CloseReason = "unregistered"
	ReasonShutdown       CloseReason = "shutdown"
)

// Subscriber is the handle for one downstream stream. The serving layer
// drains Events until Done is closed; the broadcast engine feeds it via Send.
//
// The events channel is never closed. Closure is signalled through Done so
// a send racing with Close cannot panic.
type Subscriber struct {
	id        string
	metadata  map[string]string
	events    chan []byte
	createdAt time.Time

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	reason    CloseReason
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithMetadata adds a metadata key-value pair to the subscriber.
func WithMetadata(key, value string) SubscriberOption {
	return func(s *Subscriber) {
		s.metadata[key] = value
	}
}

// WithQueueSize overrides the registry's queue size for one subscriber.
func WithQueueSize(n int) SubscriberOption {
	return func(s *Subscriber) {
		if n > 0 {
			s.events = make(chan []byte, n)
		}
	}
}

// NewSubscriber creates a detached handle with an explicit identity.
// Use Registry.Attach to make it deliverable.
func NewSubscriber(id string, opts ...SubscriberOption) *Subscriber {
	return newSubscriber(id, DefaultConfig().QueueSize, opts...)
}

func newSubscriber(id string, queueSize int, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		id:        id,
		metadata:  make(map[string]string),
		events:    make(chan []byte, queueSize),
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the subscriber's unique identifier.
func (s *Subscriber) ID() string { return s.id }

// Metadata returns all subscriber metadata.
func (s *Subscriber) Metadata() map[string]string { return s.metadata }

// CreatedAt returns when the handle was created.
func (s *Subscriber) CreatedAt() time.Time { return s.createdAt }

// Events returns the channel the serving layer drains.
func (s *Subscriber) Events() <-chan []byte { return s.events }

// Done is closed when the subscriber is closed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Send queues payload for delivery. It waits while the queue is full until
// ctx ends, returning ErrSendTimeout on deadline and ErrSubscriberClosed if
// the subscriber closes first. Concurrent Sends are not ordered relative to
// each other.
func (s *Subscriber) Send(ctx context.Context, payload []byte) error {
	err := s.trySend(payload)
	if !errors.Is(err, errQueueFull) {
		return err
	}

	select {
	case s.events <- payload:
		return nil
	case <-s.done:
		return ErrSubscriberClosed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrSendTimeout
		}
		return ctx.Err()
	}
}

// trySend enqueues without blocking.
func (s *Subscriber) trySend(payload []byte) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}

	select {
	case s.events <- payload:
		return nil
	default:
		return errQueueFull
	}
}

// Close marks the subscriber closed. Safe to call multiple times.
func (s *Subscriber) Close() {
	s.closeWith(ReasonUnregistered)
}

// closeWith closes the handle, keeping the first reason recorded.
func (s *Subscriber) closeWith(reason CloseReason) bool {
	closed := false
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.done)
		closed = true
	})
	return closed
}

// Closed reports whether the subscriber has been closed.
func (s *Subscriber) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Reason returns why the subscriber was closed, or ReasonNone while open.
func (s *Subscriber) Reason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
