package sse

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/eventrelay/errors"
	"github.com/kbukum/eventrelay/logger"
	"github.com/kbukum/eventrelay/observability"
)

// Broadcaster fans a payload out to the current subscribers.
// The upstream session depends on this rather than on Engine.
type Broadcaster interface {
	Publish(ctx context.Context, payload []byte) PublishResult
}

// PublishResult summarizes one fan-out.
type PublishResult struct {
	Attempted int
	Delivered int
	Failed    int
	// Dropped lists subscribers unregistered because delivery failed.
	Dropped  []string
	Duration time.Duration
}

// Engine delivers payloads to every subscriber in a registry snapshot.
type Engine struct {
	registry    *Registry
	sendTimeout time.Duration
	maxParallel int
	metrics     *observability.RelayMetrics
	log         *logger.Logger
}

var _ Broadcaster = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineMetrics records publish outcomes.
func WithEngineMetrics(m *observability.RelayMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithEngineLogger overrides the engine logger.
func WithEngineLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine over reg using the delivery settings in cfg.
func NewEngine(reg *Registry, cfg *Config, opts ...EngineOption) *Engine {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
		c.ApplyDefaults()
	}
	e := &Engine{
		registry:    reg,
		sendTimeout: c.SendTimeout,
		maxParallel: c.MaxParallelSends,
		log:         logger.Get("sse"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type deliveryFailure struct {
	sub *Subscriber
	err error
}

// Publish delivers payload to every subscriber in a snapshot taken at call
// time. Subscribers with queue room are served inline; the rest are waited
// on in parallel for at most the send timeout each. Failed subscribers are
// unregistered. Publish returns after every attempt settles, so sequential
// calls preserve per-subscriber order. The payload is shared and must not be
// modified afterwards.
func (e *Engine) Publish(ctx context.Context, payload []byte) PublishResult {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanPublish)
	defer span.End()

	subs := e.registry.Snapshot()
	res := PublishResult{Attempted: len(subs)}

	var (
		failures []deliveryFailure
		slow     []*Subscriber
	)
	for _, s := range subs {
		err := s.trySend(payload)
		switch {
		case err == nil:
			res.Delivered++
		case stderrors.Is(err, errQueueFull):
			slow = append(slow, s)
		default:
			failures = append(failures, deliveryFailure{sub: s, err: err})
		}
	}

	if len(slow) > 0 {
		var mu sync.Mutex
		// A plain group: one subscriber failing must not cancel the others.
		var g errgroup.Group
		if e.maxParallel > 0 {
			g.SetLimit(e.maxParallel)
		}
		for _, s := range slow {
			g.Go(func() error {
				sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
				err := s.Send(sendCtx, payload)
				cancel()

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, deliveryFailure{sub: s, err: err})
				} else {
					res.Delivered++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, f := range failures {
		if e.drop(ctx, f) {
			res.Dropped = append(res.Dropped, f.sub.ID())
		}
	}
	res.Failed = len(failures)
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int(observability.AttrSubscribers, res.Attempted),
		attribute.Int(observability.AttrDelivered, res.Delivered),
		attribute.Int(observability.AttrFailed, res.Failed),
		attribute.Int(observability.AttrPayloadBytes, len(payload)),
	)
	if res.Failed > 0 {
		span.SetStatus(codes.Error, "partial delivery")
	}
	e.metrics.RecordPublish(ctx, res.Delivered, res.Failed, res.Duration)

	e.log.WithContext(ctx).Debug("event published", logger.Fields(
		"subscribers", res.Attempted,
		"delivered", res.Delivered,
		"failed", res.Failed,
		"data_size", len(payload),
		logger.FieldDuration, res.Duration.Milliseconds(),
	))
	return res
}

// drop unregisters a failed subscriber. It reports whether this call removed
// it; a subscriber already removed by its transport is only logged at debug.
func (e *Engine) drop(ctx context.Context, f deliveryFailure) bool {
	reason := failureReason(f.err)
	removed := e.registry.UnregisterWithReason(f.sub.ID(), ReasonDeliveryFailed)
	if !removed {
		e.log.Debug("delivery skipped for departed subscriber", logger.Fields(
			logger.FieldSubscriberID, f.sub.ID(),
			"reason", reason,
		))
		return false
	}

	appErr := errors.SubscriberDelivery(f.sub.ID(), f.err)
	observability.SetSpanError(ctx, appErr)
	e.metrics.RecordDeliveryFailure(ctx, reason)
	e.log.WithContext(ctx).Warn("subscriber dropped after delivery failure", logger.Fields(
		logger.FieldSubscriberID, f.sub.ID(),
		"reason", reason,
		logger.FieldError, appErr.Error(),
	))
	return true
}

func failureReason(err error) string {
	switch {
	case stderrors.Is(err, ErrSendTimeout):
		return "timeout"
	case stderrors.Is(err, ErrSubscriberClosed):
		return "closed"
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
