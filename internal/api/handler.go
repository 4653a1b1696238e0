package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
	"github.com/eugenenazirov/music-school-planner/internal/export"
	"github.com/eugenenazirov/music-school-planner/internal/metrics"
	"github.com/eugenenazirov/music-school-planner/internal/scenario"
	"github.com/eugenenazirov/music-school-planner/internal/source"
	"github.com/eugenenazirov/music-school-planner/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxRequestBytes = 1 << 20

// CatalogLoader re-reads the catalog from its grid source.
type CatalogLoader interface {
	Name() string
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Handler wires calculator, storage and catalog loading into HTTP handlers.
type Handler struct {
	calculator calculator.Calculator
	storage    storage.Storage
	loader     CatalogLoader
	policy     calculator.Policy
	metrics    *metrics.Metrics
	logger     *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLoader enables POST /api/catalog/refresh.
func WithLoader(loader CatalogLoader) HandlerOption {
	return func(h *Handler) {
		h.loader = loader
	}
}

// WithPolicy sets the policy applied when a request leaves fields out.
func WithPolicy(policy calculator.Policy) HandlerOption {
	return func(h *Handler) {
		h.policy = policy
	}
}

// WithMetrics records computations and catalog loads.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithHandlerLogger sets the logger used for refresh and computation events.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(calc calculator.Calculator, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		calculator: calc,
		storage:    store,
		policy:     calculator.DefaultPolicy(),
		logger:     zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.storage.GetCatalog()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCatalogResponse(snap, ""))
}

func (h *Handler) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotImplemented, "Refresh unavailable", "no catalog source is configured")
		return
	}

	cat, err := h.loader.Load(r.Context())
	if err != nil {
		h.metrics.CatalogFailed(h.loader.Name())
		h.logger.Warn("catalog refresh failed, keeping previous catalog",
			zap.String("source", h.loader.Name()),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		if errors.Is(err, source.ErrSourceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Catalog source unavailable", err.Error(), "The previous catalog is still in use; retry later")
			return
		}
		writeInternalError(w, err)
		return
	}

	now := h.clock()
	if err := h.storage.SetCatalog(cat, h.loader.Name(), now); err != nil {
		writeInternalError(w, err)
		return
	}
	h.metrics.CatalogLoaded(h.loader.Name(), cat.Stats.Dropped(), now)
	h.logger.Info("catalog refreshed",
		zap.String("source", h.loader.Name()),
		zap.Int("dropped_rows", cat.Stats.Dropped()),
	)

	snap, err := h.storage.GetCatalog()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCatalogResponse(snap, "Catalog refreshed successfully"))
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	in, warnings, ok := h.decodeScenario(w, r)
	if !ok {
		return
	}

	start := time.Now()
	report := h.calculator.Calculate(in)
	elapsed := time.Since(start)
	h.metrics.Computed("package", report.SaturationPct, len(warnings))

	resp := totalsResponse{
		ReportID:          uuid.NewString(),
		Report:            report,
		Warnings:          warnings,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTerm(w http.ResponseWriter, r *http.Request) {
	in, warnings, ok := h.decodeScenario(w, r)
	if !ok {
		return
	}
	in.Lessons = calculator.LessonsPerPackage

	start := time.Now()
	report := h.calculator.Calculate(in)
	term := h.calculator.Term(report, in.Policy)
	elapsed := time.Since(start)
	h.metrics.Computed("term", report.SaturationPct, len(warnings))

	resp := termResponse{
		ReportID:          uuid.NewString(),
		Package:           report,
		Term:              term,
		Warnings:          warnings,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExportDetail(w http.ResponseWriter, r *http.Request) {
	in, warnings, ok := h.decodeScenario(w, r)
	if !ok {
		return
	}
	report := h.calculator.Calculate(in)
	h.metrics.Computed("export", report.SaturationPct, len(warnings))

	var buf bytes.Buffer
	if err := export.WriteDetailCSV(&buf, report.Details); err != nil {
		writeInternalError(w, err)
		return
	}
	writeCSV(w, "revenue_detail_1_package.csv", buf.Bytes())
}

func (h *Handler) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	in, warnings, ok := h.decodeScenario(w, r)
	if !ok {
		return
	}
	report := h.calculator.Calculate(in)
	term := calculator.ProjectTerm(h.calculator, in)
	h.metrics.Computed("export", report.SaturationPct, len(warnings))

	var buf bytes.Buffer
	if err := export.WriteSummaryCSV(&buf, report, term); err != nil {
		writeInternalError(w, err)
		return
	}
	writeCSV(w, "package_summary.csv", buf.Bytes())
}

// decodeScenario parses the request body and resolves it against the stored
// catalog. It writes the error response itself and reports false on failure.
func (h *Handler) decodeScenario(w http.ResponseWriter, r *http.Request) (calculator.Input, []scenario.Adjustment, bool) {
	var req scenario.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return calculator.Input{}, nil, false
	}

	snap, err := h.storage.GetCatalog()
	if err != nil {
		writeStorageError(w, err)
		return calculator.Input{}, nil, false
	}

	in, warnings, err := scenario.Build(snap.Catalog, req, h.policy)
	if err != nil {
		switch {
		case errors.Is(err, calculator.ErrUnknownCourse):
			writeError(w, http.StatusBadRequest, "Invalid scenario", err.Error(),
				fmt.Sprintf("Use one of %v", calculator.CourseKinds()))
		case errors.Is(err, calculator.ErrUnknownDuration):
			writeError(w, http.StatusBadRequest, "Invalid scenario", err.Error(),
				fmt.Sprintf("Use one of %v minutes", calculator.Durations()))
		case errors.Is(err, calculator.ErrUnknownActivity):
			writeError(w, http.StatusBadRequest, "Invalid scenario", err.Error(),
				fmt.Sprintf("Use one of %v", calculator.ActivityKeys()))
		case errors.Is(err, scenario.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "Invalid scenario", err.Error())
		default:
			writeInternalError(w, err)
		}
		return calculator.Input{}, nil, false
	}

	if len(warnings) > 0 {
		h.logger.Debug("scenario adjusted",
			zap.Int("adjustments", len(warnings)),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
	}
	if warnings == nil {
		warnings = []scenario.Adjustment{}
	}
	return in, warnings, true
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type totalsResponse struct {
	ReportID          string                `json:"reportId"`
	Report            calculator.Report     `json:"report"`
	Warnings          []scenario.Adjustment `json:"warnings"`
	CalculationTimeMs int64                 `json:"calculationTimeMs"`
}

type termResponse struct {
	ReportID          string                `json:"reportId"`
	Package           calculator.Report     `json:"package"`
	Term              calculator.TermReport `json:"term"`
	Warnings          []scenario.Adjustment `json:"warnings"`
	CalculationTimeMs int64                 `json:"calculationTimeMs"`
}

type priceEntry struct {
	Duration calculator.Duration   `json:"duration"`
	Course   calculator.CourseKind `json:"course"`
	Price    float64               `json:"price"`
}

// effectivePriceEntry is the price a computation would use, with the lookup
// layer that supplied it.
type effectivePriceEntry struct {
	Duration calculator.Duration   `json:"duration"`
	Course   calculator.CourseKind `json:"course"`
	Price    float64               `json:"price"`
	Source   string                `json:"source"`
}

type durationPriceEntry struct {
	Duration calculator.Duration `json:"duration"`
	Price    float64             `json:"price"`
}

type enrollmentEntry struct {
	Duration calculator.Duration   `json:"duration"`
	Course   calculator.CourseKind `json:"course"`
	Students int                   `json:"students"`
}

type specialEntry struct {
	Key      calculator.ActivityKey `json:"key"`
	Title    string                 `json:"title"`
	Students int                    `json:"students"`
	Duration calculator.Duration    `json:"duration"`
	Price    float64                `json:"price"`
}

type catalogResponse struct {
	Source         string                `json:"source"`
	LoadedAt       time.Time             `json:"loadedAt"`
	Prices         []priceEntry          `json:"prices"`
	DurationPrices []durationPriceEntry  `json:"durationPrices"`
	Effective      []effectivePriceEntry `json:"effectivePrices"`
	Enrollments    []enrollmentEntry     `json:"enrollments"`
	Specials       []specialEntry        `json:"specials"`
	Stats          catalog.LoadStats     `json:"stats"`
	Message        string                `json:"message,omitempty"`
}

// newCatalogResponse flattens the keyed catalog maps into ordered lists.
func newCatalogResponse(snap storage.Snapshot, message string) catalogResponse {
	cat := snap.Catalog
	resp := catalogResponse{
		Source:         snap.Source,
		LoadedAt:       snap.LoadedAt,
		Prices:         []priceEntry{},
		DurationPrices: []durationPriceEntry{},
		Effective:      []effectivePriceEntry{},
		Enrollments:    []enrollmentEntry{},
		Specials:       []specialEntry{},
		Stats:          cat.Stats,
		Message:        message,
	}
	for _, d := range calculator.Durations() {
		if p, ok := cat.Prices.ByDuration[d]; ok {
			resp.DurationPrices = append(resp.DurationPrices, durationPriceEntry{Duration: d, Price: p})
		}
		for _, course := range calculator.CourseKinds() {
			key := calculator.EnrollmentKey{Duration: d, Course: course}
			if p, ok := cat.Prices.Exact[key]; ok {
				resp.Prices = append(resp.Prices, priceEntry{Duration: d, Course: course, Price: p})
			}
			res := cat.Price(d, course)
			resp.Effective = append(resp.Effective, effectivePriceEntry{Duration: d, Course: course, Price: res.Value, Source: res.Source.String()})
			if n, ok := cat.Enrollments[key]; ok {
				resp.Enrollments = append(resp.Enrollments, enrollmentEntry{Duration: d, Course: course, Students: n})
			}
		}
	}
	for _, key := range calculator.ActivityKeys() {
		a := cat.Special(key)
		resp.Specials = append(resp.Specials, specialEntry{
			Key:      key,
			Title:    key.Title(),
			Students: a.Students,
			Duration: a.Duration,
			Price:    a.Price,
		})
	}
	return resp
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNoCatalog) {
		writeError(w, http.StatusServiceUnavailable, "Catalog not loaded", err.Error(), "Refresh the catalog from its source")
		return
	}
	writeInternalError(w, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
