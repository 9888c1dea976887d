// Package otel provides OpenTelemetry metric bindings for goCred counters and the
// authenticate latency histogram.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter. The
// latency histogram becomes a {name}_bucket gauge with one point per "le"
// attribute plus a {name}_count gauge. One callback reads
// [goCred.Engine.MetricsSnapshot] per collection.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
