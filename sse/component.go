package sse

import (
	"context"
	"fmt"

	"github.com/kbukum/eventrelay/component"
	"github.com/kbukum/eventrelay/observability"
)

// Component owns the subscriber registry, the broadcast engine and the
// stream handler as one lifecycle unit. Stop closes every subscriber so
// open streams return and release their connections.
type Component struct {
	registry *Registry
	engine   *Engine
	handler  *Handler
	cfg      Config
	path     string
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent builds the registry, engine and handler from cfg.
// metrics may be nil.
func NewComponent(cfg *Config, path string, metrics *observability.RelayMetrics) *Component {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
		c.ApplyDefaults()
	}
	reg := NewRegistry(WithRegistryQueueSize(c.QueueSize), WithRegistryMetrics(metrics))
	return &Component{
		registry: reg,
		engine:   NewEngine(reg, &c, WithEngineMetrics(metrics)),
		handler:  NewHandler(reg, &c),
		cfg:      c,
		path:     path,
	}
}

// Registry returns the subscriber registry.
func (c *Component) Registry() *Registry { return c.registry }

// Engine returns the broadcast engine.
func (c *Component) Engine() *Engine { return c.engine }

// Handler returns the stream handler.
func (c *Component) Handler() *Handler { return c.handler }

// Path returns the route the handler is mounted on.
func (c *Component) Path() string { return c.path }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start implements component.Component. It reopens a registry closed by a
// previous Stop.
func (c *Component) Start(_ context.Context) error {
	c.registry.Reopen()
	return nil
}

// Stop signals every open stream to finish.
func (c *Component) Stop(_ context.Context) error {
	c.registry.CloseAll()
	return nil
}

// Health returns the health status of the subscriber side.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d subscribers connected", c.registry.Count()),
	}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name: "SSE Fan-out",
		Type: "sse",
		Details: fmt.Sprintf("path=%s send_timeout=%s queue=%d",
			c.path, c.cfg.SendTimeout, c.cfg.QueueSize),
	}
}
