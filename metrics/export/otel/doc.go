// Package otel publishes gate metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per gate counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [gate.Gate.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate gate state.
package otel
