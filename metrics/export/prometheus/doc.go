// Package prometheus renders powgate metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [powgate.Engine] and exposes an
// [net/http.Handler] that renders all powgate counters and histograms.
// Counter names are prefixed powgate_*_total; the single histogram is
// powgate_submit_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
