package dia

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricCredentialsSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricCredentialsSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if m.LatencyEnabled() {
		t.Fatal("latency histograms require metrics to be enabled")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected an empty snapshot, got %+v", snap)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const each = 5000

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				m.Inc(MetricRateLimited)
				m.Inc(MetricJWTSigned)
			}
		}()
	}
	wg.Wait()

	for _, id := range []MetricID{MetricRateLimited, MetricJWTSigned} {
		if got := m.Value(id); got != workers*each {
			t.Fatalf("%s: expected %d, got %d", id, workers*each, got)
		}
	}
}

func TestLatencyBucketBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{5*time.Millisecond + 400*time.Microsecond, 0},
		{6 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{99 * time.Millisecond, 4},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, tc := range cases {
		if got := latencyBucket(tc.d); got != tc.want {
			t.Fatalf("latencyBucket(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestMetricsSnapshotCopiesValues(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricCredentialsSuccess)
	m.Inc(MetricCredentialsFailure)
	m.Inc(MetricCredentialsFailure)
	m.Observe(MetricValidateLatency, 2*time.Millisecond)
	m.Observe(MetricValidateLatency, 300*time.Millisecond)

	snap := m.Snapshot()
	m.Inc(MetricCredentialsSuccess)

	if snap.Counters[MetricCredentialsSuccess] != 1 || snap.Counters[MetricCredentialsFailure] != 2 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	if len(snap.Counters) != int(metricIDCount) {
		t.Fatalf("expected %d counters, got %d", metricIDCount, len(snap.Counters))
	}
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != latencyBucketCount || buckets[0] != 1 || buckets[6] != 1 {
		t.Fatalf("unexpected histogram %v", buckets)
	}
}

func TestMetricsIgnoresUnknownIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(metricIDCount)
	m.Observe(MetricJWTSigned, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricJWTSigned]; ok {
		t.Fatal("counters must not grow histograms")
	}
	if m.Value(metricIDCount) != 0 {
		t.Fatal("unknown ids must read as zero")
	}
}

func TestMetricIDString(t *testing.T) {
	if got := MetricJWTValidateFailure.String(); got != "jwt_validate_failure" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := metricIDCount.String(); got != "metric(14)" {
		t.Fatalf("unexpected name for unknown id %q", got)
	}
	for id := range metricIDCount {
		if id.String() == "" {
			t.Fatalf("metric %d has no name", id)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricJWTSigned)
	m.Observe(MetricValidateLatency, time.Second)
	if m.Enabled() || m.Value(MetricJWTSigned) != 0 || len(m.Snapshot().Counters) != 0 {
		t.Fatal("nil metrics must report nothing")
	}
}
