// Package api exposes the submission processing operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	service "github.com/GruntingRhino/Athlemetry/internal/app"
	"github.com/GruntingRhino/Athlemetry/internal/domain/benchmark"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/processing"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

const (
	defaultMaxUploadBytes = 200 * 1024 * 1024
	// multipart framing and metadata fields on top of the video itself
	formOverheadBytes = 1024 * 1024
	maxJSONBytes      = 1024 * 1024

	msgSubmissionNotFound = "Submission not found."
)

// Dependencies are the service operations the handlers call.
type Dependencies interface {
	SubmitVideo(ctx context.Context, in service.SubmitVideoInput) (service.SubmitVideoResult, error)
	SubmissionStatus(ctx context.Context, id string) (*model.Submission, error)
	RetrySubmission(ctx context.Context, id string) (processing.Result, error)
	ProcessSubmission(ctx context.Context, id string) processing.Result

	RunProcessingBatch(ctx context.Context, limit int) (service.BatchResult, error)
	PurgeExpiredVideos(ctx context.Context, limit int) (retention.Summary, error)
	RecalculateBenchmarksForSubmission(ctx context.Context, id string) (*model.BenchmarkSnapshot, error)
	RecalculateAllBenchmarks(ctx context.Context) (int, error)
	AthleteBenchmarks(ctx context.Context, athleteID string) ([]model.BenchmarkSnapshot, error)

	Drills(ctx context.Context) ([]model.DrillDefinition, error)
	RegisterAthlete(ctx context.Context, in service.RegisterAthleteInput) (*model.Athlete, error)
	ApproveParentConsent(ctx context.Context, athleteID string) error

	ActivateModelVersion(ctx context.Context, version, notes string) (*model.ModelVersion, error)
	ApplyManualOverride(ctx context.Context, in service.ManualOverrideInput) (*model.ManualOverride, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	submissionsHandler *SubmissionsHandler
	processingHandler  *ProcessingHandler
	catalogHandler     *CatalogHandler
	adminHandler       *AdminHandler

	logger logger.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxUploadBytes int64
	logger         logger.Logger
}

// WithMaxUploadBytes sets the largest accepted video.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for recovered panics.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, health HealthChecker, opts ...Option) *Server {
	cfg := serverConfig{maxUploadBytes: defaultMaxUploadBytes, logger: logger.Named("api")}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(health),
		statsHandler:       NewStatsHandler(stats),
		submissionsHandler: NewSubmissionsHandler(deps, cfg.maxUploadBytes),
		processingHandler:  NewProcessingHandler(deps),
		catalogHandler:     NewCatalogHandler(deps),
		adminHandler:       NewAdminHandler(deps),
		logger:             cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /api/v1/submissions", MetricsMiddleware(s.submissionsHandler.HandleUpload, "submissions_upload"))
	mux.HandleFunc("GET /api/v1/submissions/{id}", MetricsMiddleware(s.submissionsHandler.HandleStatus, "submissions_status"))
	mux.HandleFunc("POST /api/v1/submissions/{id}/retry", MetricsMiddleware(s.submissionsHandler.HandleRetry, "submissions_retry"))
	mux.HandleFunc("POST /api/v1/submissions/{id}/process", MetricsMiddleware(s.submissionsHandler.HandleProcess, "submissions_process"))
	mux.HandleFunc("POST /api/v1/submissions/{id}/benchmark", MetricsMiddleware(s.processingHandler.HandleRecalculateOne, "benchmark_recalculate_one"))

	mux.HandleFunc("POST /api/v1/processing/run", MetricsMiddleware(s.processingHandler.HandleRunBatch, "processing_run"))
	mux.HandleFunc("POST /api/v1/benchmarks/recalculate", MetricsMiddleware(s.processingHandler.HandleRecalculateAll, "benchmark_recalculate_all"))

	mux.HandleFunc("GET /api/v1/drills", MetricsMiddleware(s.catalogHandler.HandleDrills, "drills"))
	mux.HandleFunc("POST /api/v1/athletes", MetricsMiddleware(s.catalogHandler.HandleRegisterAthlete, "athletes_register"))
	mux.HandleFunc("POST /api/v1/athletes/{id}/consent", MetricsMiddleware(s.catalogHandler.HandleApproveConsent, "athletes_consent"))
	mux.HandleFunc("GET /api/v1/athletes/{id}/benchmarks", MetricsMiddleware(s.catalogHandler.HandleAthleteBenchmarks, "athletes_benchmarks"))

	mux.HandleFunc("POST /api/v1/admin/storage/purge-expired", MetricsMiddleware(s.adminHandler.HandlePurgeExpired, "admin_purge_expired"))
	mux.HandleFunc("POST /api/v1/admin/model/version", MetricsMiddleware(s.adminHandler.HandleActivateVersion, "admin_model_version"))
	mux.HandleFunc("POST /api/v1/admin/manual-override", MetricsMiddleware(s.adminHandler.HandleManualOverride, "admin_manual_override"))
}

// Handler registers the routes on mux and wraps it with panic recovery and
// OpenTelemetry request spans.
func (s *Server) Handler(ctx context.Context, mux *http.ServeMux) http.Handler {
	s.Register(ctx, mux)
	var h http.Handler = mux
	h = RecoverMiddleware(s.logger)(h)
	return otelhttp.NewHandler(h, "athlemetry.http")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrConsentRequired):
		writeError(w, http.StatusForbidden, "consent_required", err)
	case errors.Is(err, processing.ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: msgSubmissionNotFound})
	case errors.Is(err, service.ErrAthleteNotFound),
		errors.Is(err, processing.ErrDrillNotFound),
		errors.Is(err, benchmark.ErrSubmissionNotFound),
		errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, service.ErrDrillUnavailable),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUploadFailed):
		writeError(w, http.StatusInternalServerError, "upload_failed", service.ErrUploadFailed)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}
