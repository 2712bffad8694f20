package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of blocking the caller when the
	// queue is full.
	DropIfFull bool
}

// Dispatcher moves events off the request path onto a single delivery
// goroutine. A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu guards closed and the send side of queue.
	mu     sync.RWMutex
	closed bool
	queue  chan Event

	drained   chan struct{}
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher returns nil when auditing is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		drained:    make(chan struct{}),
	}
	go d.deliverLoop()
	return d
}

func (d *Dispatcher) deliverLoop() {
	defer close(d.drained)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver isolates the loop from a panicking sink; such events count as dropped.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. In blocking mode it waits for room until ctx ends, and
// an event abandoned that way is counted as dropped. Emit after Close is a no-op.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops intake and waits until every queued event reached the sink.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.drained
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
