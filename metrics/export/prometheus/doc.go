// Package prometheus renders gate metrics in Prometheus text exposition format.
//
// Counters are named reuse_gate_*_total; the single histogram is
// reuse_gate_check_latency_seconds. Callers mount [PrometheusExporter.Handler]
// themselves; nothing is registered globally.
package prometheus
