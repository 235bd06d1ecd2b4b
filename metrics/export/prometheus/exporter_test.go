package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot {
	return f.snapshot
}

func sampleSource() fakeSource {
	return fakeSource{snapshot: goSession.MetricsSnapshot{
		Counters: map[goSession.MetricID]uint64{
			goSession.MetricSignInSuccess:  3,
			goSession.MetricSessionEvicted: 1,
		},
		Histograms: map[goSession.MetricID][]uint64{
			goSession.MetricRefreshLatency: {1, 1, 1, 1, 1, 1, 1, 1},
		},
	}}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(sampleSource())

	const want = `
# HELP gosession_sign_in_success_total Successful sign-ins.
# TYPE gosession_sign_in_success_total counter
gosession_sign_in_success_total 3
# HELP gosession_session_evicted_total Sessions evicted by the per-user cap.
# TYPE gosession_session_evicted_total counter
gosession_session_evicted_total 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"gosession_sign_in_success_total", "gosession_session_evicted_total"); err != nil {
		t.Fatal(err)
	}

	if n := testutil.CollectAndCount(c); n != len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs) {
		t.Fatalf("unexpected metric count %d", n)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	const want = `
# HELP gosession_refresh_latency_seconds Refresh latency.
# TYPE gosession_refresh_latency_seconds histogram
gosession_refresh_latency_seconds_bucket{le="0.005"} 1
gosession_refresh_latency_seconds_bucket{le="0.01"} 2
gosession_refresh_latency_seconds_bucket{le="0.025"} 3
gosession_refresh_latency_seconds_bucket{le="0.05"} 4
gosession_refresh_latency_seconds_bucket{le="0.1"} 5
gosession_refresh_latency_seconds_bucket{le="0.25"} 6
gosession_refresh_latency_seconds_bucket{le="0.5"} 7
gosession_refresh_latency_seconds_bucket{le="+Inf"} 8
gosession_refresh_latency_seconds_sum 0
gosession_refresh_latency_seconds_count 8
`
	if err := testutil.CollectAndCompare(NewCollector(sampleSource()), strings.NewReader(want),
		"gosession_refresh_latency_seconds"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorDisabledSnapshot(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: goSession.MetricsSnapshot{}})
	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("disabled metrics should export nothing, got %d", n)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	h, err := Handler(sampleSource())
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "gosession_sign_in_success_total 3") {
		t.Fatalf("missing counter in body:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("missing runtime collector output")
	}
}
