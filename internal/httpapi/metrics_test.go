package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"trashd/internal/apperr"
)

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	return rr.Body.String()
}

// Upload keys are per-request UUIDs; the path label must be the route
// pattern or every upload would create a new series.
func TestMetrics_LabelsUploadsByPattern(t *testing.T) {
	m := newMock()
	m.uploadDir = t.TempDir()
	key := "0b8f5d2e-4c1a-4e7b-9f3d-2a6c8e1b7d40.png"
	if err := os.WriteFile(filepath.Join(m.uploadDir, key), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewMux(m)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/uploads/{key}", http.MethodGet, "200"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/"+key, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/uploads/{key}", http.MethodGet, "200"))
	if after != before+1 {
		t.Fatalf("pattern counter: before=%v after=%v", before, after)
	}
	if strings.Contains(scrape(t), key) {
		t.Fatalf("raw upload key leaked into metric labels")
	}
}

func TestMetrics_RecordsErrorStatus(t *testing.T) {
	h := NewMux(newMock())
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/predict", http.MethodPost, "400"))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/predict", http.MethodPost, "400")); got != before+1 {
		t.Fatalf("400 counter: before=%v got=%v", before, got)
	}
	if v := testutil.ToFloat64(httpInflight.WithLabelValues(http.MethodPost)); v != 0 {
		t.Fatalf("inflight gauge not released: %v", v)
	}
}

// A saturated session pool answers 429 and counts as backpressure.
func TestMetrics_BusyCountsBackpressure(t *testing.T) {
	m := newMock()
	m.classifyErr = apperr.Busy("classifier busy, try again")
	h := NewMux(m)

	before := testutil.ToFloat64(backpressureTotal.WithLabelValues("classifier_pool"))
	body, ct := multipartBody(t, "can.png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := testutil.ToFloat64(backpressureTotal.WithLabelValues("classifier_pool")); got != before+1 {
		t.Fatalf("backpressure: before=%v got=%v", before, got)
	}

	before = testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified"))
	IncrementBackpressure("")
	if got := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified")); got != before+1 {
		t.Fatalf("unspecified reason: before=%v got=%v", before, got)
	}
	if !bytes.Contains([]byte(scrape(t)), []byte("trashd_http_backpressure_total")) {
		t.Fatalf("backpressure family missing from /metrics")
	}
}

func TestMetrics_UnmatchedRoutesShareALabel(t *testing.T) {
	h := NewMux(newMock())
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "404"))
	for _, p := range []string{"/no/such/a", "/no/such/b"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: status=%d", p, rr.Code)
		}
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "404")); got != before+2 {
		t.Fatalf("unmatched counter: before=%v got=%v", before, got)
	}
	if strings.Contains(scrape(t), "/no/such") {
		t.Fatalf("raw path leaked into metric labels")
	}
}

func TestMetrics_ObservesResponseSize(t *testing.T) {
	h := NewMux(newMock())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/labels", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if n := testutil.CollectAndCount(httpResponseBytes, "trashd_http_response_bytes"); n == 0 {
		t.Fatalf("response size not observed")
	}
}
