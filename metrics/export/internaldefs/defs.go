package internaldefs

import (
	"github.com/reusemarket/gate"
)

// CounterDef names one gate counter for export.
type CounterDef struct {
	ID   gate.MetricID
	Name string
	Help string
}

// HistogramDef names one gate histogram for export.
type HistogramDef struct {
	ID   gate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "reuse_gate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: gate.MetricCheckStarted, Name: "reuse_gate_check_started_total", Help: "Validity checks started by mount, focus or route change."},
	{ID: gate.MetricCheckApplied, Name: "reuse_gate_check_applied_total", Help: "Check completions that updated the session status."},
	{ID: gate.MetricCheckDiscarded, Name: "reuse_gate_check_discarded_total", Help: "Check completions discarded as stale."},
	{ID: gate.MetricSettledAuthenticated, Name: "reuse_gate_settled_authenticated_total", Help: "Checks that settled authenticated."},
	{ID: gate.MetricSettledUnauthenticated, Name: "reuse_gate_settled_unauthenticated_total", Help: "Checks that settled unauthenticated."},
	{ID: gate.MetricStorageFailure, Name: "reuse_gate_storage_failure_total", Help: "Token store failures treated as logged out."},
	{ID: gate.MetricDecodeFailure, Name: "reuse_gate_decode_failure_total", Help: "Stored credentials whose payload could not be decoded."},
	{ID: gate.MetricExpiredCleared, Name: "reuse_gate_expired_cleared_total", Help: "Expired credentials removed from the store."},
	{ID: gate.MetricRedirectIssued, Name: "reuse_gate_redirect_issued_total", Help: "Navigation actions issued."},
	{ID: gate.MetricRedirectDropped, Name: "reuse_gate_redirect_dropped_total", Help: "Redirect requests dropped while another redirect was in flight."},
	{ID: gate.MetricLoginSuccess, Name: "reuse_gate_login_success_total", Help: "Successful logins."},
	{ID: gate.MetricLoginFailure, Name: "reuse_gate_login_failure_total", Help: "Failed logins, including rejected form input."},
	{ID: gate.MetricLogout, Name: "reuse_gate_logout_total", Help: "Logouts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: gate.MetricCheckLatency, Name: "reuse_gate_check_latency_seconds", Help: "Store read and decode latency per check."},
}

// HistogramBounds are the upper bounds of the eight latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the running totals both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
