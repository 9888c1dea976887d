package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsRecordNothing(t *testing.T) {
	m := New(Config{Enabled: false, EnableLatency: true})
	m.Inc(MetricAuthSuccess)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	if got := m.Value(MetricAuthSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginLocked)
	m.Observe(MetricAuthenticateLatency, time.Second)
	if m.Value(MetricLoginLocked) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestIncConcurrent(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
}

func TestOutOfRangeIDIgnored(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricIDCount)
	m.Inc(MetricIDCount + 10)
	if got := m.Value(MetricIDCount); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestObserveBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})

	durations := []time.Duration{
		time.Millisecond,
		8 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		90 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		2 * time.Second,
	}
	for _, d := range durations {
		m.Observe(MetricAuthenticateLatency, d)
	}
	m.Observe(MetricAuthSuccess, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricAuthenticateLatency]
	if len(buckets) != HistBucketCount {
		t.Fatalf("expected %d buckets, got %d", HistBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, v)
		}
	}
}

func TestSnapshotOmitsLatencySlotFromCounters(t *testing.T) {
	m := New(Config{Enabled: true})
	snap := m.Snapshot()

	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("latency slot must not appear as a counter")
	}
	if len(snap.Counters) != int(MetricIDCount)-1 {
		t.Fatalf("expected %d counters, got %d", int(MetricIDCount)-1, len(snap.Counters))
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("histograms must be empty when latency is disabled")
	}
}
