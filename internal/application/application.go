package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/music-school-planner/internal/api"
	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
	"github.com/eugenenazirov/music-school-planner/internal/config"
	"github.com/eugenenazirov/music-school-planner/internal/metrics"
	"github.com/eugenenazirov/music-school-planner/internal/source"
	"github.com/eugenenazirov/music-school-planner/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage    storage.Storage
	calculator calculator.Calculator
	loader     *source.Loader
	metrics    *metrics.Metrics
	handler    *api.Handler
	router     http.Handler
	logger     *zap.Logger
	server     *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. The catalog is loaded once before the server is built; a
// source that cannot be read aborts startup.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	src, err := NewSource(cfg.Source)
	if err != nil {
		return nil, err
	}
	loader := &source.Loader{Source: src, Layout: cfg.Layout, Timeout: cfg.LoadTimeout}
	m := metrics.New()

	cat, err := LoadCatalog(context.Background(), loader, m, logger)
	if err != nil {
		return nil, err
	}

	store := storage.NewMemoryStorage(cat, loader.Name(), time.Now())

	calc := calculator.New()
	handler := api.NewHandler(calc, store,
		api.WithLoader(loader),
		api.WithPolicy(cfg.Policy),
		api.WithMetrics(m),
		api.WithHandlerLogger(logger),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithRouterMetrics(m),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
	)

	return &App{
		storage:    store,
		calculator: calc,
		loader:     loader,
		metrics:    m,
		handler:    handler,
		router:     apiRouter,
		logger:     logger,
		server:     NewServer(cfg, BuildRootHandler(apiRouter, m.Handler())),
	}, nil
}

// NewSource maps the configured source kind to a catalog source.
func NewSource(cfg config.SourceConfig) (source.Source, error) {
	switch cfg.Kind {
	case "", config.SourceBuiltin:
		return source.Builtin{}, nil
	case config.SourceCSV:
		return source.CSVFile{Path: cfg.CSVPath}, nil
	case config.SourceSheets:
		return source.GoogleSheets{
			SpreadsheetID:   cfg.SpreadsheetID,
			SheetName:       cfg.SheetName,
			CredentialsFile: cfg.CredentialsFile,
		}, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Kind)
	}
}

// LoadCatalog performs the startup load, recording the outcome in m.
func LoadCatalog(ctx context.Context, loader *source.Loader, m *metrics.Metrics, logger *zap.Logger) (*catalog.Catalog, error) {
	cat, err := loader.Load(ctx)
	if err != nil {
		m.CatalogFailed(loader.Name())
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	now := time.Now()
	m.CatalogLoaded(loader.Name(), cat.Stats.Dropped(), now)
	logger.Info("catalog loaded",
		zap.String("source", loader.Name()),
		zap.Int("prices", len(cat.Prices.Exact)),
		zap.Int("enrollments", len(cat.Enrollments)),
		zap.Int("specials", len(cat.Specials)),
		zap.Int("dropped_rows", cat.Stats.Dropped()),
	)
	return cat, nil
}

// BuildRootHandler constructs the root HTTP handler that routes API requests
// and exposes the metrics endpoint.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr), zap.String("catalog_source", a.loader.Name()))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root handler served by the HTTP server.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
