package dia

import (
	"io"

	"github.com/dia-accounts/dia/internal/audit"
)

// AuditEvent is one security-relevant outcome delivered to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives events on the dispatcher goroutine. Implementations must not block
// indefinitely; Engine.Close waits for queued events to drain.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
