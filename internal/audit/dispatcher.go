package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Stats counts what happened to emitted events.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// Panicked counts events whose sink call panicked. The worker survives.
	Panicked uint64
}

// Dispatcher relays events to a sink from a single worker goroutine, so sinks
// see events one at a time and in queue order.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu guards queue against a send racing its close. Emit holds the read
	// side for the duration of a send.
	mu     sync.RWMutex
	closed bool
	queue  chan Event
	idle   chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
}

// NewDispatcher starts the worker. It returns nil when cfg is disabled; every
// method is safe on a nil Dispatcher and does nothing.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
		idle:       make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.idle)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull a full queue drops and counts the event;
// otherwise Emit waits for room or for ctx. Events emitted after Close are
// discarded silently.
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

// Close stops intake and returns once every queued event reached the sink.
// It is idempotent.
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

	<-d.idle
}

// Dropped returns the number of events discarded on a full queue or a
// canceled context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Stats returns a point-in-time copy of the counters.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Panicked:  d.panicked.Load(),
	}
}
