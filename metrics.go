package dia

import (
	"strconv"
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricRateLimited counts checks rejected because a window was exhausted.
	MetricRateLimited MetricID = iota
	// MetricRateLimitStoreFailure counts checks the counter store could not answer.
	MetricRateLimitStoreFailure
	// MetricRateLimitFailOpen counts store failures admitted under FailOpen.
	MetricRateLimitFailOpen
	MetricCredentialsSuccess
	MetricCredentialsFailure
	MetricUserCreated
	MetricUserCreateDuplicate
	MetricUserCreateFailure
	MetricRefreshTokenCreated
	MetricJWTSigned
	MetricJWTSignFailure
	MetricJWTValidateSuccess
	MetricJWTValidateFailure
	// MetricValidateLatency is the only histogram: time spent in ValidateJWT.
	MetricValidateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRateLimited:           "rate_limited",
	MetricRateLimitStoreFailure: "rate_limit_store_failure",
	MetricRateLimitFailOpen:     "rate_limit_fail_open",
	MetricCredentialsSuccess:    "credentials_success",
	MetricCredentialsFailure:    "credentials_failure",
	MetricUserCreated:           "user_created",
	MetricUserCreateDuplicate:   "user_create_duplicate",
	MetricUserCreateFailure:     "user_create_failure",
	MetricRefreshTokenCreated:   "refresh_token_created",
	MetricJWTSigned:             "jwt_signed",
	MetricJWTSignFailure:        "jwt_sign_failure",
	MetricJWTValidateSuccess:    "jwt_validate_success",
	MetricJWTValidateFailure:    "jwt_validate_failure",
	MetricValidateLatency:       "jwt_validate_latency",
}

func (id MetricID) String() string {
	if id < metricIDCount {
		return metricNames[id]
	}
	return "metric(" + strconv.Itoa(int(id)) + ")"
}

// LatencyBuckets are the inclusive upper bounds of the validation latency
// histogram. Anything slower lands in a final overflow bucket.
var LatencyBuckets = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(LatencyBuckets) + 1

// counterCell keeps each hot counter on its own cache line.
type counterCell struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters and one latency histogram. Every method is
// safe for concurrent use and a nil *Metrics discards everything.
type Metrics struct {
	enabled bool
	latency bool
	cells   [metricIDCount]counterCell
	hist    [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics that records only when cfg.Enabled is set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

// Inc adds one to id. Unknown ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.cells[id].n.Add(1)
}

// Observe records d for MetricValidateLatency. Other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricValidateLatency {
		return
	}
	m.hist[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.cells[id].n.Load()
}

// Snapshot copies the current values. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := range metricIDCount {
		snap.Counters[id] = m.cells[id].n.Load()
	}
	if m.latency {
		buckets := make([]uint64, latencyBucketCount)
		for i := range buckets {
			buckets[i] = m.hist[i].Load()
		}
		snap.Histograms[MetricValidateLatency] = buckets
	}
	return snap
}

// latencyBucket compares at millisecond resolution so that an observation of
// exactly a bound, give or take sub-millisecond noise, stays in that bucket.
func latencyBucket(d time.Duration) int {
	d = d.Truncate(time.Millisecond)
	for i, bound := range LatencyBuckets {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBuckets)
}
