package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/eventrelay/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it globally.
// The returned provider must be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// RelayMetrics holds the instruments recorded by the broadcast engine and
// the upstream session. A nil *RelayMetrics is valid and records nothing.
type RelayMetrics struct {
	eventsReceived    metric.Int64Counter
	deliveries        metric.Int64Counter
	deliveryFailures  metric.Int64Counter
	activeSubscribers metric.Int64UpDownCounter
	reconnects        metric.Int64Counter
	publishDuration   metric.Float64Histogram
	stateChanges      metric.Int64Counter
}

// NewRelayMetrics creates the relay instruments on the given meter.
func NewRelayMetrics(meter metric.Meter) (*RelayMetrics, error) {
	eventsReceived, err := meter.Int64Counter("relay.events.received",
		metric.WithDescription("Events received from the upstream feed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.events.received counter: %w", err)
	}

	deliveries, err := meter.Int64Counter("relay.deliveries",
		metric.WithDescription("Successful per-subscriber deliveries"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.deliveries counter: %w", err)
	}

	deliveryFailures, err := meter.Int64Counter("relay.delivery.failures",
		metric.WithDescription("Failed per-subscriber deliveries, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.delivery.failures counter: %w", err)
	}

	activeSubscribers, err := meter.Int64UpDownCounter("relay.subscribers.active",
		metric.WithDescription("Currently registered subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.subscribers.active gauge: %w", err)
	}

	reconnects, err := meter.Int64Counter("relay.upstream.reconnects",
		metric.WithDescription("Upstream reconnection attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.upstream.reconnects counter: %w", err)
	}

	publishDuration, err := meter.Float64Histogram("relay.publish.duration",
		metric.WithDescription("Time to fan one event out to every subscriber"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.publish.duration histogram: %w", err)
	}

	stateChanges, err := meter.Int64Counter("relay.upstream.state_changes",
		metric.WithDescription("Upstream session state transitions, by target state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.upstream.state_changes counter: %w", err)
	}

	return &RelayMetrics{
		eventsReceived:    eventsReceived,
		deliveries:        deliveries,
		deliveryFailures:  deliveryFailures,
		activeSubscribers: activeSubscribers,
		reconnects:        reconnects,
		publishDuration:   publishDuration,
		stateChanges:      stateChanges,
	}, nil
}

// RecordEventReceived counts one upstream event.
func (m *RelayMetrics) RecordEventReceived(ctx context.Context) {
	if m == nil {
		return
	}
	m.eventsReceived.Add(ctx, 1)
}

// RecordPublish records the outcome of one fan-out.
func (m *RelayMetrics) RecordPublish(ctx context.Context, delivered, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	if delivered > 0 {
		m.deliveries.Add(ctx, int64(delivered))
	}
	m.publishDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Bool("partial", failed > 0),
	))
}

// RecordDeliveryFailure counts a dropped subscriber by failure reason.
func (m *RelayMetrics) RecordDeliveryFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.deliveryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// SubscriberAdded increments the active subscriber gauge.
func (m *RelayMetrics) SubscriberAdded(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeSubscribers.Add(ctx, 1)
}

// SubscriberRemoved decrements the active subscriber gauge.
func (m *RelayMetrics) SubscriberRemoved(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeSubscribers.Add(ctx, -1)
}

// RecordReconnect counts a scheduled reconnection attempt.
func (m *RelayMetrics) RecordReconnect(ctx context.Context, upstream string) {
	if m == nil {
		return
	}
	m.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.String("upstream", upstream)))
}

// RecordStateChange counts an upstream session transition.
func (m *RelayMetrics) RecordStateChange(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.stateChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
