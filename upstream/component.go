package upstream

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/eventrelay/component"
	"github.com/kbukum/eventrelay/logger"
)

// Component runs a Session in the background between Start and Stop.
type Component struct {
	session *Session
	cfg     Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent wraps session. cfg is used for the startup summary only.
func NewComponent(session *Session, cfg Config) *Component {
	return &Component{session: session, cfg: cfg}
}

// Session returns the wrapped session.
func (c *Component) Session() *Session { return c.session }

// Name implements component.Component.
func (c *Component) Name() string { return "upstream" }

// Start launches the session. The start context only bounds startup; the
// session runs until Stop.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return fmt.Errorf("upstream: already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := c.session.Run(runCtx)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		if err != nil && !stderrors.Is(err, context.Canceled) {
			logger.Get("upstream").Error("upstream session ended", logger.ErrorFields("run", err))
		}
	}(c.done)
	return nil
}

// Stop cancels the session and waits for the connection to be released.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("upstream: stop: %w", ctx.Err())
	}
}

// Done is closed when the session stops running. Nil before Start.
func (c *Component) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns the error Run ended with, if any.
func (c *Component) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Health maps the session state: connected is healthy, connecting and
// failed are degraded, stopped is unhealthy.
func (c *Component) Health(_ context.Context) component.Health {
	st := c.session.Stats()
	h := component.Health{Name: c.Name()}
	switch st.State {
	case StateConnected:
		h.Status = component.StatusHealthy
		h.Message = fmt.Sprintf("connected to %s", st.Address)
	case StateStopped:
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("gave up after %d failures: %s", st.ConsecutiveFailures, st.LastError)
	default:
		h.Status = component.StatusDegraded
		h.Message = st.State.String()
		if st.LastError != "" {
			h.Message += ": " + st.LastError
		}
	}
	return h
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	rc := c.session.policy.Config()
	attempts := "unlimited"
	if rc.MaxAttempts > 0 {
		attempts = fmt.Sprintf("%d", rc.MaxAttempts)
	}
	transport, _ := transportFor(c.cfg.URL)
	return component.Description{
		Name: "Upstream Feed",
		Type: string(transport),
		Details: fmt.Sprintf("%s backoff=%s..%s x%g attempts=%s",
			c.session.dialer.Address(), rc.InitialDelay, rc.MaxDelay, rc.Multiplier, attempts),
	}
}
