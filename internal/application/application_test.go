package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
	"github.com/eugenenazirov/music-school-planner/internal/config"
	"github.com/eugenenazirov/music-school-planner/internal/metrics"
	"github.com/eugenenazirov/music-school-planner/internal/source"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	snap, err := app.storage.GetCatalog()
	if err != nil {
		t.Fatalf("GetCatalog returned error: %v", err)
	}
	if snap.Source != "builtin" {
		t.Fatalf("expected builtin source, got %q", snap.Source)
	}
	key := calculator.EnrollmentKey{Duration: calculator.Minutes45, Course: calculator.WindTheory}
	if got := snap.Catalog.Enrollments[key]; got != 16 {
		t.Fatalf("expected default enrollment 16 for %s, got %d", key, got)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.metrics == nil {
		t.Fatalf("expected server, router, handler and metrics to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewServesTotalsAndMetrics(t *testing.T) {
	app, err := New(baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/totals", strings.NewReader(`{"useDefaults":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from totals, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`music_school_computations_total{kind="package"} 1`,
		`music_school_catalog_loads_total{outcome="ok",source="builtin"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition", want)
		}
	}
}

func TestNewLoadsCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "situation.csv")
	var b strings.Builder
	for _, row := range catalog.DefaultGrid() {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	cfg := baseTestConfig(":0")
	cfg.Source = config.SourceConfig{Kind: config.SourceCSV, CSVPath: path}

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	snap, err := app.storage.GetCatalog()
	if err != nil {
		t.Fatalf("GetCatalog returned error: %v", err)
	}
	if snap.Source != "csv:"+path {
		t.Fatalf("unexpected source name %q", snap.Source)
	}
}

func TestNewFailsWhenSourceUnavailable(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Source = config.SourceConfig{Kind: config.SourceCSV, CSVPath: filepath.Join(t.TempDir(), "missing.csv")}

	_, err := New(cfg, zaptest.NewLogger(t))
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestNewSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  config.SourceConfig
		want string
	}{
		{config.SourceConfig{}, "builtin"},
		{config.SourceConfig{Kind: config.SourceBuiltin}, "builtin"},
		{config.SourceConfig{Kind: config.SourceCSV, CSVPath: "a.csv"}, "csv:a.csv"},
		{config.SourceConfig{Kind: config.SourceSheets, SpreadsheetID: "id", SheetName: "S"}, "sheets:id/S"},
	}
	for _, tt := range tests {
		src, err := NewSource(tt.cfg)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tt.cfg, err)
		}
		if src.Name() != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, src.Name())
		}
	}

	if _, err := NewSource(config.SourceConfig{Kind: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestLoadCatalogRecordsFailure(t *testing.T) {
	m := metrics.New()
	loader := &source.Loader{Source: source.CSVFile{Path: filepath.Join(t.TempDir(), "none.csv")}, Layout: catalog.DefaultLayout()}

	if _, err := LoadCatalog(context.Background(), loader, m, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected load error")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `outcome="error"`) {
		t.Fatalf("expected failure to be counted")
	}
}

func TestBuildRootHandler(t *testing.T) {
	t.Parallel()

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := BuildRootHandler(apiHandler, metricsHandler)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/health", http.StatusNoContent},
		{http.MethodGet, "/metrics", http.StatusAccepted},
		{http.MethodGet, "/", http.StatusNotFound},
		{http.MethodGet, "/index.html", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Fatalf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		Source:               config.SourceConfig{Kind: config.SourceBuiltin},
		LoadTimeout:          time.Second,
		Layout:               catalog.DefaultLayout(),
		Policy:               calculator.DefaultPolicy(),
	}
}
