package sse

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/eventrelay/errors"
	"github.com/kbukum/eventrelay/logger"
	"github.com/kbukum/eventrelay/observability"
)

// Registry is the set of deliverable subscribers keyed by identity.
// All access goes through its methods; callers iterate Snapshot copies only.
type Registry struct {
	mu        sync.RWMutex
	subs      map[string]*Subscriber
	queueSize int
	closed    bool
	metrics   *observability.RelayMetrics
	log       *logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryQueueSize sets the queue size of handles created by Register.
func WithRegistryQueueSize(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithRegistryMetrics records the active subscriber gauge.
func WithRegistryMetrics(m *observability.RelayMetrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		subs:      make(map[string]*Subscriber),
		queueSize: DefaultConfig().QueueSize,
		log:       logger.Get("sse"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a handle with a fresh identity and adds it. It never fails.
// After CloseAll the handle comes back already closed and is not added.
func (r *Registry) Register(opts ...SubscriberOption) *Subscriber {
	r.mu.Lock()
	id := uuid.NewString()
	for r.subs[id] != nil {
		id = uuid.NewString()
	}
	s := newSubscriber(id, r.queueSize, opts...)
	if r.closed {
		r.mu.Unlock()
		s.closeWith(ReasonShutdown)
		return s
	}
	r.subs[id] = s
	total := len(r.subs)
	r.mu.Unlock()

	r.metrics.SubscriberAdded(context.Background())
	r.log.Debug("subscriber registered", logger.Fields(
		logger.FieldSubscriberID, id,
		"total_subscribers", total,
	))
	return s
}

// Attach adds a handle built by the caller. A duplicate identity aborts the
// attach with a registry invariant error and leaves the registry unchanged.
func (r *Registry) Attach(s *Subscriber) error {
	if s == nil || s.id == "" {
		return errors.RegistryInvariant("subscriber must have an identity")
	}
	if s.Closed() {
		return ErrSubscriberClosed
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrSubscriberClosed
	}
	if _, exists := r.subs[s.id]; exists {
		r.mu.Unlock()
		return errors.RegistryInvariant("duplicate subscriber identity").
			WithDetail(logger.FieldSubscriberID, s.id)
	}
	r.subs[s.id] = s
	total := len(r.subs)
	r.mu.Unlock()

	r.metrics.SubscriberAdded(context.Background())
	r.log.Debug("subscriber attached", logger.Fields(
		logger.FieldSubscriberID, s.id,
		"total_subscribers", total,
	))
	return nil
}

// Unregister removes and closes the handle if present. It reports whether
// this call removed it; removing an absent identity is a no-op.
func (r *Registry) Unregister(id string) bool {
	return r.UnregisterWithReason(id, ReasonUnregistered)
}

// UnregisterWithReason is Unregister recording why the stream ended.
func (r *Registry) UnregisterWithReason(id string, reason CloseReason) bool {
	r.mu.Lock()
	s, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	total := len(r.subs)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.closeWith(reason)
	r.metrics.SubscriberRemoved(context.Background())
	r.log.Debug("subscriber unregistered", logger.Fields(
		logger.FieldSubscriberID, id,
		"reason", string(reason),
		"total_subscribers", total,
	))
	return true
}

// Snapshot returns a point-in-time copy of the members.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}

// Count returns the number of registered subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Get returns a subscriber by ID, or nil if not registered.
func (r *Registry) Get(id string) *Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs[id]
}

// CloseAll removes every subscriber and signals each to finish. The registry
// stays closed to new members until Reopen.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = make(map[string]*Subscriber)
	r.mu.Unlock()

	for _, s := range subs {
		s.closeWith(ReasonShutdown)
		r.metrics.SubscriberRemoved(context.Background())
	}
	if len(subs) > 0 {
		r.log.Info("all subscribers closed", logger.Fields("count", len(subs)))
	}
}

// Reopen accepts new members again after CloseAll.
func (r *Registry) Reopen() {
	r.mu.Lock()
	r.closed = false
	r.mu.Unlock()
}

// Closed reports whether CloseAll has shut the registry.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
