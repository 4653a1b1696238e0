package integration

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/music-school-planner/internal/application"
	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
	"github.com/eugenenazirov/music-school-planner/internal/config"
	"github.com/eugenenazirov/music-school-planner/internal/export"
)

func writeGrid(t *testing.T, path string, grid [][]string) {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(grid); err != nil {
		t.Fatalf("encode grid: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write grid: %v", err)
	}
}

func newApp(t *testing.T, csvPath string) http.Handler {
	t.Helper()

	cfg := config.Config{
		Port:        ":0",
		Source:      config.SourceConfig{Kind: config.SourceCSV, CSVPath: csvPath},
		LoadTimeout: time.Second,
		Layout:      catalog.DefaultLayout(),
		Policy:      calculator.DefaultPolicy(),
	}
	app, err := application.New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("application.New: %v", err)
	}
	return app.Handler()
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func totalRevenue(t *testing.T, handler http.Handler, payload []byte) float64 {
	t.Helper()

	rec := performRequest(t, handler, http.MethodPost, "/api/totals", payload, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from totals, got %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Report struct {
			TotalRevenue float64 `json:"totalRevenue"`
		} `json:"report"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return response.Report.TotalRevenue
}

func TestIntegrationFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "situation.csv")
	grid := catalog.DefaultGrid()
	writeGrid(t, path, grid)

	handler := newApp(t, path)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	payload, _ := json.Marshal(map[string]any{
		"enrollments": []map[string]any{
			{"duration": 30, "course": "solo_fiato", "students": 4},
		},
	})

	// 4 students at the sheet price of 90 per package
	if got := totalRevenue(t, handler, payload); got != 360 {
		t.Fatalf("unexpected revenue %v", got)
	}

	grid[1][2] = "100"
	writeGrid(t, path, grid)

	rec = performRequest(t, handler, http.MethodPost, "/api/catalog/refresh", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := totalRevenue(t, handler, payload); got != 400 {
		t.Fatalf("expected refreshed price to apply, got revenue %v", got)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove grid: %v", err)
	}
	rec = performRequest(t, handler, http.MethodPost, "/api/catalog/refresh", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the sheet disappears, got %d", rec.Code)
	}
	if got := totalRevenue(t, handler, payload); got != 400 {
		t.Fatalf("expected previous catalog to stay in use, got revenue %v", got)
	}
}

func TestIntegrationExportsAndMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "situation.csv")
	writeGrid(t, path, catalog.DefaultGrid())
	handler := newApp(t, path)

	body := []byte(`{"useDefaults": true}`)
	headers := map[string]string{"Content-Type": "application/json"}

	rec := performRequest(t, handler, http.MethodPost, "/api/export/summary", body, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from summary export, got %d", rec.Code)
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if len(records) != 3 || strings.Join(records[0], ",") != strings.Join(export.SummaryHeader, ",") {
		t.Fatalf("unexpected summary %v", records)
	}
	if records[1][0] != "package" || records[2][0] != "term" {
		t.Fatalf("unexpected horizons %q and %q", records[1][0], records[2][0])
	}

	rec = performRequest(t, handler, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `music_school_computations_total{kind="export"} 1`) {
		t.Fatalf("expected export computation to be counted")
	}
}
