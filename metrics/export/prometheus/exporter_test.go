package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dia-accounts/dia"
)

type fakeSource struct {
	snapshot dia.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() dia.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                 { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{snapshot: dia.NewMetrics(dia.MetricsConfig{}).Snapshot()})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}

	var nilExp *Exporter
	if got := nilExp.Render(); got != "" {
		t.Fatalf("nil exporter rendered %q", got)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: dia.MetricsSnapshot{
			Counters: map[dia.MetricID]uint64{
				dia.MetricRateLimited: 7,
				dia.MetricJWTSigned:   3,
			},
			Histograms: map[dia.MetricID][]uint64{
				dia.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE dia_rate_limited_total counter",
		"dia_rate_limited_total 7",
		"dia_jwt_signed_total 3",
		"dia_credentials_failure_total 0",
		"# TYPE dia_jwt_validate_latency_seconds histogram",
		`dia_jwt_validate_latency_seconds_bucket{le="0.005"} 1`,
		`dia_jwt_validate_latency_seconds_bucket{le="+Inf"} 36`,
		"dia_jwt_validate_latency_seconds_count 36",
		"dia_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsHistogramWhenLatencyDisabled(t *testing.T) {
	m := dia.NewMetrics(dia.MetricsConfig{Enabled: true})
	m.Inc(dia.MetricUserCreated)

	out := New(fakeSource{snapshot: m.Snapshot()}).Render()
	if !strings.Contains(out, "dia_user_created_total 1") {
		t.Fatalf("missing counter in output:\n%s", out)
	}
	if strings.Contains(out, "latency") {
		t.Fatalf("histogram rendered while latency tracking is off:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := New(fakeSource{
		snapshot: dia.MetricsSnapshot{
			Counters:   map[dia.MetricID]uint64{dia.MetricCredentialsSuccess: 1},
			Histograms: map[dia.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{
		snapshot: dia.MetricsSnapshot{
			Counters: map[dia.MetricID]uint64{
				dia.MetricRateLimited:        1000,
				dia.MetricCredentialsSuccess: 800,
				dia.MetricCredentialsFailure: 40,
				dia.MetricJWTSigned:          800,
				dia.MetricJWTValidateSuccess: 9000,
			},
			Histograms: map[dia.MetricID][]uint64{
				dia.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
