package gate

import (
	"io"

	"github.com/reusemarket/gate/internal/audit"
)

// AuditEvent records one gate decision or credential lifecycle change.
type AuditEvent = audit.Event

// AuditSink receives audit events from the gate's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events on a channel for tests and in-process consumers.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per audit event.
type JSONWriterSink = audit.JSONWriterSink

// Audit event types emitted by the gate.
const (
	AuditRedirect     = "redirect"
	AuditTokenCleared = "token_cleared"
	AuditLogin        = "login"
	AuditLogout       = "logout"
)

// NewChannelSink returns a ChannelSink holding up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
