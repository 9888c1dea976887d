// Package metrics holds the engine's counters and the Authenticate latency
// histogram.
//
// Each counter sits in its own padded slot and is bumped with an atomic add,
// so hot paths never lock or allocate. The histogram has eight fixed buckets
// from 5ms up to +Inf. [Metrics.Snapshot] copies everything out for the
// exporters under metrics/export.
//
// # What this package must NOT do
//
//   - Import goCred or any sibling package.
//   - Register itself anywhere global.
package metrics
