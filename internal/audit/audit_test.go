package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: EventAuthFailure})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: EventAuthSuccess})
	}
	d.Close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
}

func TestDispatcherDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestDispatcherBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, &countingSink{})

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

type panicSink struct{}

func (panicSink) Emit(_ context.Context, e Event) {
	if e.EventType == "boom" {
		panic("sink failure")
	}
}

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})

	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: EventAuthSuccess})
	d.Close()

	stats := d.Stats()
	if stats.Panicked != 1 || stats.Delivered != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDispatcherCanceledContextCountsDrop(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "e3"})

	if d.Dropped() == 0 {
		t.Fatal("expected a drop after the context expired")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp:  time.Now().UTC(),
		EventType:  EventLoginLocked,
		Identifier: "203.0.113.9",
		Success:    false,
	})
	sink.Emit(context.Background(), Event{EventType: EventAttemptsReset, Success: true})

	out := buf.String()
	if !strings.Contains(out, `"event_type":"login_locked"`) {
		t.Fatalf("missing event type: %s", out)
	}
	if !strings.Contains(out, `"identifier":"203.0.113.9"`) {
		t.Fatalf("missing identifier: %s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestZapSinkLogsStructuredEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{
		EventType: EventSourceUnavailable,
		AttemptID: "a-1",
		Source:    "directory",
		Error:     "timeout",
	})

	entries := logs.FilterMessage(EventSourceUnavailable).All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["source"] != "directory" || fields["attempt_id"] != "a-1" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if entries[0].LoggerName != "audit" {
		t.Fatalf("unexpected logger name %q", entries[0].LoggerName)
	}
}
