// Package prometheus renders engine metrics in the Prometheus text exposition format.
//
// [New] wraps a [Source], normally a *dia.Engine, and [Exporter.Handler] serves the
// rendered page. Counters are named dia_*_total; the verification latency histogram is
// dia_jwt_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
