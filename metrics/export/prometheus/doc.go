// Package prometheus provides a client_golang collector for goCred metrics.
//
// [NewCollector] accepts a [goCred.Engine] and returns a [prometheus.Collector] that
// converts each engine snapshot into const metrics at scrape time. Counter names are
// prefixed credgate_*_total; the single histogram is
// credgate_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     Collector or mount its Handler.
//   - Mutate engine state.
package prometheus
