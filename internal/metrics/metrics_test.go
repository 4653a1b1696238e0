package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	return string(body)
}

func TestMetricsExposeRecordedValues(t *testing.T) {
	t.Parallel()

	m := New()
	m.Computed("package", 30.5, 2)
	m.Computed("term", 30.5, 0)
	m.CatalogLoaded("builtin", 1, time.Unix(1700000000, 0))
	m.CatalogFailed("sheets:abc/Situazione")

	out := scrape(t, m)
	for _, want := range []string{
		`music_school_computations_total{kind="package"} 1`,
		`music_school_computations_total{kind="term"} 1`,
		`music_school_input_adjustments_total 2`,
		`music_school_last_saturation_percent 30.5`,
		`music_school_catalog_loads_total{outcome="ok",source="builtin"} 1`,
		`music_school_catalog_loads_total{outcome="error",source="sheets:abc/Situazione"} 1`,
		`music_school_catalog_dropped_rows 1`,
		`music_school_catalog_loaded_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, out)
		}
	}
}

func TestWrapHandlerRecordsStatus(t *testing.T) {
	t.Parallel()

	m := New()
	h := m.WrapHandler("POST /api/totals", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/totals", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	out := scrape(t, m)
	if !strings.Contains(out, `music_school_http_requests_total{route="POST /api/totals",status="400"} 1`) {
		t.Fatalf("missing request counter:\n%s", out)
	}
	if !strings.Contains(out, `music_school_http_request_duration_seconds_count{route="POST /api/totals"} 1`) {
		t.Fatalf("missing duration histogram:\n%s", out)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Computed("package", 1, 1)
	m.CatalogLoaded("builtin", 0, time.Now())
	m.CatalogFailed("builtin")

	called := false
	h := m.WrapHandler("x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected wrapped handler to run")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics, got %d", rec.Code)
	}
}
