package upstream

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/eventrelay/logger"
	"github.com/kbukum/eventrelay/observability"
	"github.com/kbukum/eventrelay/resilience"
	"github.com/kbukum/eventrelay/sse"
)

var (
	// ErrReconnectExhausted is returned by Run when the policy stops retrying.
	ErrReconnectExhausted = stderrors.New("upstream: reconnect attempts exhausted")
	// ErrSessionRunning is returned by Run when the session is already running.
	ErrSessionRunning = stderrors.New("upstream: session already running")
)

// Session owns the single upstream connection. Run connects, forwards each
// message to the broadcaster, and reconnects per the policy until ctx ends
// or the policy gives up.
type Session struct {
	dialer    Dialer
	publisher sse.Broadcaster
	policy    *resilience.ReconnectPolicy
	metrics   *observability.RelayMetrics
	log       *logger.Logger
	wait      func(ctx context.Context, d time.Duration) error

	running atomic.Bool

	mu        sync.RWMutex
	stats     Stats
	listeners []StateListener
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionMetrics records events, reconnects and transitions.
func WithSessionMetrics(m *observability.RelayMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithSessionLogger overrides the session logger.
func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithWaitFunc replaces the reconnect delay wait, mainly for tests.
func WithWaitFunc(fn func(ctx context.Context, d time.Duration) error) SessionOption {
	return func(s *Session) { s.wait = fn }
}

// WithStateListener registers a transition listener at construction.
func WithStateListener(fn StateListener) SessionOption {
	return func(s *Session) { s.listeners = append(s.listeners, fn) }
}

// NewSession creates a disconnected session.
func NewSession(dialer Dialer, publisher sse.Broadcaster, policy *resilience.ReconnectPolicy, opts ...SessionOption) *Session {
	if policy == nil {
		policy = resilience.NewReconnectPolicy(resilience.DefaultReconnectConfig())
	}
	s := &Session{
		dialer:    dialer,
		publisher: publisher,
		policy:    policy,
		log:       logger.Get("upstream"),
		wait:      resilience.Wait,
		stats:     Stats{State: StateDisconnected, Address: dialer.Address()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnStateChange registers a transition listener.
func (s *Session) OnStateChange(fn StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.State
}

// Stats returns a copy of the session counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Run drives the session until ctx ends (returning nil) or the policy gives
// up (returning ErrReconnectExhausted wrapping the last failure). The
// connection is closed on every exit path.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}
	defer s.running.Store(false)

	failures := 0
	for {
		if ctx.Err() != nil {
			s.transition(StateDisconnected, nil)
			return nil
		}

		s.transition(StateConnecting, nil)
		conn, err := s.connect(ctx, failures+1)
		if err == nil {
			failures = 0
			s.transition(StateConnected, nil)
			err = s.receive(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			s.transition(StateDisconnected, nil)
			return nil
		}

		failures++
		s.transition(StateFailed, err)

		delay, retry := s.policy.Next(failures)
		if !retry {
			s.transition(StateStopped, err)
			s.log.Error("upstream reconnection abandoned", logger.Fields(
				logger.FieldUpstream, s.dialer.Address(),
				logger.FieldAttempt, failures,
				logger.FieldError, errString(err),
			))
			return fmt.Errorf("%w after %d consecutive failures: %w", ErrReconnectExhausted, failures, err)
		}

		s.mu.Lock()
		s.stats.NextAttemptAt = time.Now().Add(delay)
		s.mu.Unlock()
		s.metrics.RecordReconnect(ctx, s.dialer.Address())
		s.log.Info("upstream reconnect scheduled", logger.Fields(
			logger.FieldUpstream, s.dialer.Address(),
			logger.FieldAttempt, failures,
			"delay_ms", delay.Milliseconds(),
		))

		if err := s.wait(ctx, delay); err != nil {
			s.transition(StateDisconnected, nil)
			return nil
		}
	}
}

func (s *Session) connect(ctx context.Context, attempt int) (Conn, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanUpstreamConnect)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrUpstream, s.dialer.Address()),
		attribute.Int(observability.AttrAttempt, attempt),
	)

	s.mu.Lock()
	s.stats.Attempts++
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return nil, err
	}
	return conn, nil
}

func (s *Session) receive(ctx context.Context, conn Conn) error {
	for {
		payload, err := conn.Receive(ctx)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.stats.EventsReceived++
		s.stats.LastEventAt = time.Now()
		s.mu.Unlock()
		s.metrics.RecordEventReceived(ctx)

		s.publisher.Publish(ctx, payload)
	}
}

func (s *Session) transition(to State, cause error) {
	s.mu.Lock()
	from := s.stats.State
	s.stats.State = to
	switch to {
	case StateConnected:
		s.stats.ConsecutiveFailures = 0
		s.stats.ConnectedSince = time.Now()
		s.stats.LastError = ""
		s.stats.NextAttemptAt = time.Time{}
	case StateFailed:
		s.stats.ConsecutiveFailures++
		s.stats.ConnectedSince = time.Time{}
		s.stats.LastError = errString(cause)
	case StateDisconnected, StateStopped:
		s.stats.ConnectedSince = time.Time{}
		s.stats.NextAttemptAt = time.Time{}
	}
	listeners := append([]StateListener(nil), s.listeners...)
	s.mu.Unlock()

	if from == to {
		return
	}

	fields := logger.Fields(
		logger.FieldUpstream, s.dialer.Address(),
		"from", from.String(),
		logger.FieldState, to.String(),
	)
	if cause != nil {
		fields[logger.FieldError] = cause.Error()
	}
	switch to {
	case StateFailed:
		s.log.Warn("upstream state changed", fields)
	default:
		s.log.Info("upstream state changed", fields)
	}
	s.metrics.RecordStateChange(context.Background(), to.String())

	for _, fn := range listeners {
		fn(from, to)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
