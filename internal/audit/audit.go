package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event records one security-relevant outcome. It never carries passwords,
// password hashes, refresh token strings or signed JWTs.
type Event struct {
	Timestamp      time.Time         `json:"timestamp"`
	Type           string            `json:"type"`
	Success        bool              `json:"success"`
	ClientAddress  string            `json:"client_address,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	Username       string            `json:"username,omitempty"`
	RefreshTokenID string            `json:"refresh_token_id,omitempty"`
	Error          string            `json:"error,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Sink receives events from the dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer over a buffered channel. Emit blocks
// while the buffer is full unless ctx ends first.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink encodes each event as a single JSON line. Write errors are
// discarded; a broken audit writer must not fail account operations.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}
