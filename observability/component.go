package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/eventrelay/component"
)

// Component installs the meter and tracer providers on Start and flushes
// them on Stop. Instruments created earlier through the global provider
// start exporting once the providers are installed.
type Component struct {
	cfg *Config

	mu sync.Mutex
	mp *sdkmetric.MeterProvider
	tp *sdktrace.TracerProvider
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the telemetry component.
func NewComponent(cfg *Config) *Component {
	return &Component{cfg: cfg}
}

// Name implements component.Component.
func (c *Component) Name() string { return "telemetry" }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Metrics.Enabled {
		mp, err := InitMeter(ctx, c.cfg.MeterConfig())
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		c.mp = mp
	}
	if c.cfg.Tracing.Enabled {
		tp, err := InitTracer(ctx, c.cfg.TracerConfig())
		if err != nil {
			if c.mp != nil {
				_ = c.mp.Shutdown(ctx)
				c.mp = nil
			}
			return fmt.Errorf("init tracer: %w", err)
		}
		c.tp = tp
	}
	return nil
}

// Stop implements component.Component.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.tp != nil {
		if err := c.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		c.tp = nil
	}
	if c.mp != nil {
		if err := c.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		c.mp = nil
	}
	return errors.Join(errs...)
}

// Health implements component.Component.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	details := "disabled"
	switch {
	case c.cfg.Metrics.Enabled && c.cfg.Tracing.Enabled:
		details = fmt.Sprintf("metrics+traces -> %s", c.cfg.Metrics.Endpoint)
	case c.cfg.Metrics.Enabled:
		details = fmt.Sprintf("metrics -> %s", c.cfg.Metrics.Endpoint)
	case c.cfg.Tracing.Enabled:
		details = fmt.Sprintf("traces -> %s", c.cfg.Tracing.Endpoint)
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
