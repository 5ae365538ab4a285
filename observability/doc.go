// Package observability provides OpenTelemetry tracing and metrics for the relay.
//
// Providers are installed by the telemetry Component when enabled in config:
//
//	comp := observability.NewComponent(&cfg.Observability)
//
// Relay instruments are created against the global meter and begin exporting
// once a provider is installed:
//
//	metrics, err := observability.NewRelayMetrics(observability.Meter(observability.InstrumentationName))
//	metrics.RecordPublish(ctx, delivered, failed, elapsed)
//
// Spans:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPublish)
//	defer span.End()
package observability
