package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gymops/internal/adapters/http/perf"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

// TestTiming_RecordsLabelAndStatus verifies the recorded entry uses the route label.
func TestTiming_RecordsLabelAndStatus(t *testing.T) {
	collector := perf.NewCollector(10)
	label := func(r *http.Request) string { return r.Method + " /api/branches/:branch/slots" }
	h := Timing(collector, 0, label)(okHandler(http.StatusCreated))

	rr := serve(h, http.MethodPost, "/api/branches/north/slots")
	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.Routes) != 1 || snap.Routes[0].Label != "POST /api/branches/:branch/slots" {
		t.Fatalf("Routes = %+v", snap.Routes)
	}
	if snap.Routes[0].AvgMs < 0 {
		t.Errorf("AvgMs = %v, want >= 0", snap.Routes[0].AvgMs)
	}
}

// TestTiming_DefaultLabel verifies a nil label falls back to method and path.
func TestTiming_DefaultLabel(t *testing.T) {
	collector := perf.NewCollector(10)
	serve(Timing(collector, 0, nil)(okHandler(http.StatusOK)), http.MethodGet, "/admin/perf")

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.Routes) != 1 || snap.Routes[0].Label != "GET /admin/perf" {
		t.Errorf("Routes = %+v", snap.Routes)
	}
}

// TestTiming_SkipsHealth verifies health probes are not timed.
func TestTiming_SkipsHealth(t *testing.T) {
	collector := perf.NewCollector(10)
	rr := serve(Timing(collector, 0, nil)(okHandler(http.StatusOK)), http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if collector.TotalRecorded() != 0 {
		t.Errorf("TotalRecorded = %d, want 0", collector.TotalRecorded())
	}
}

// TestTiming_NilCollector verifies middleware works without a collector.
func TestTiming_NilCollector(t *testing.T) {
	rr := serve(Timing(nil, 0, nil)(okHandler(http.StatusOK)), http.MethodGet, "/api/x")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTiming_HandlerPanic verifies the deferred recording runs when a handler panics.
func TestTiming_HandlerPanic(t *testing.T) {
	collector := perf.NewCollector(10)
	h := Timing(collector, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
		}
	}()
	serve(h, http.MethodGet, "/api/panic")
}

// TestTiming_PoolNoStateLeak verifies pooled writers do not leak status codes.
func TestTiming_PoolNoStateLeak(t *testing.T) {
	collector := perf.NewCollector(10)
	serve(Timing(collector, 0, nil)(okHandler(http.StatusInternalServerError)), http.MethodGet, "/api/fail")

	implicit := Timing(collector, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	serve(implicit, http.MethodGet, "/api/ok")

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if snap.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1 (second request must record 200)", snap.ServerErrors)
	}
}

func BenchmarkTiming(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize)
	h := Timing(collector, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/api/bench", nil)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
