// Package otel publishes engine metrics through an OpenTelemetry Meter.
//
// [New] registers one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per cumulative latency bucket. A single callback reads the
// [Source] snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
