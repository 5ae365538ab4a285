package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/eventrelay/errors"
	"github.com/kbukum/eventrelay/logger"
	"github.com/kbukum/eventrelay/resilience"
)

// Handler serves subscriber streams. Each request registers a handle,
// drains it onto the response and unregisters it on every exit path.
type Handler struct {
	registry *Registry
	cfg      Config
	log      *logger.Logger
	slots    *resilience.Bulkhead
}

// NewHandler creates a stream handler over reg.
func NewHandler(reg *Registry, cfg *Config) *Handler {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
		c.ApplyDefaults()
	}
	h := &Handler{registry: reg, cfg: c, log: logger.Get("sse")}
	if c.MaxSubscribers > 0 {
		h.slots = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "subscribers",
			MaxConcurrent: c.MaxSubscribers,
			OnReject: func(name string, err error) {
				h.log.Warn("subscriber rejected", logger.Fields("limit", c.MaxSubscribers, logger.FieldError, err.Error()))
			},
		})
	}
	return h
}

// Gin adapts the handler to a gin route.
func (h *Handler) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.log.Error("streaming not supported", logger.Fields("remote_addr", r.RemoteAddr))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	if h.slots != nil {
		release, err := h.slots.Acquire(r.Context())
		if err != nil {
			w.Header().Set("Retry-After", "5")
			errors.WriteHTTP(w, errors.ServiceUnavailable("event stream").WithDetail("max_subscribers", h.cfg.MaxSubscribers))
			return
		}
		defer release()
	}
	h.stream(w, r, flusher)
}

// stream runs one subscriber stream until the client leaves, the handle is
// closed or the lifetime expires.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	// Streams outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug("could not disable write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	opts := []SubscriberOption{WithMetadata("remote_addr", r.RemoteAddr)}
	if ua := r.UserAgent(); ua != "" {
		opts = append(opts, WithMetadata("user_agent", ua))
	}
	sub := h.registry.Register(opts...)
	if sub.Closed() {
		w.Header().Set("Retry-After", "5")
		errors.WriteHTTP(w, errors.ServiceUnavailable("event stream").WithDetail("reason", string(ReasonShutdown)))
		return
	}
	id := sub.ID()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	reason := ReasonCompleted
	defer func() {
		h.registry.UnregisterWithReason(id, reason)
		h.log.Debug("subscriber stream closed", logger.Fields(
			logger.FieldSubscriberID, id,
			"reason", string(sub.Reason()),
			"lifetime_ms", time.Since(sub.CreatedAt()).Milliseconds(),
		))
	}()

	w.WriteHeader(http.StatusOK)
	connected, _ := json.Marshal(ConnectedEvent{SubscriberID: id, Metadata: sub.Metadata()})
	if err := WriteFrame(w, Frame{Event: EventTypeConnected, Data: connected, Retry: h.cfg.Retry}); err != nil {
		reason = ReasonDeliveryFailed
		return
	}
	flusher.Flush()

	h.log.Debug("subscriber stream opened", logger.Fields(
		logger.FieldSubscriberID, id,
		"remote_addr", r.RemoteAddr,
		"last_event_id", r.Header.Get("Last-Event-ID"),
	))

	var keepAlive <-chan time.Time
	if h.cfg.KeepAlive > 0 {
		t := time.NewTicker(h.cfg.KeepAlive)
		defer t.Stop()
		keepAlive = t.C
	}
	var expired <-chan time.Time
	if h.cfg.MaxLifetime > 0 {
		t := time.NewTimer(h.cfg.MaxLifetime)
		defer t.Stop()
		expired = t.C
	}

	ctx := r.Context()
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return

		case <-sub.Done():
			return

		case <-expired:
			reason = ReasonTimeout
			return

		case payload := <-sub.Events():
			seq++
			if err := WriteFrame(w, Frame{ID: strconv.FormatUint(seq, 10), Data: payload}); err != nil {
				reason = ReasonDeliveryFailed
				h.log.Debug("subscriber write failed", logger.Fields(
					logger.FieldSubscriberID, id,
					logger.FieldError, err.Error(),
				))
				return
			}
			flusher.Flush()

		case <-keepAlive:
			if err := WriteComment(w, "keepalive "+strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
				reason = ReasonDeliveryFailed
				return
			}
			flusher.Flush()
		}
	}
}
