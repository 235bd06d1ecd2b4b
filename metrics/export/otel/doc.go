// Package otel publishes engine counters as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per histogram bucket; one callback reads
// MetricsSnapshot per collection. [NewMeterProvider] builds an OTLP gRPC
// push provider for cmd/sessiond. Callers own the provider.
package otel
