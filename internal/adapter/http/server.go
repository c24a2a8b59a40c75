// Package http exposes the archive service over HTTP: health and metrics
// endpoints plus the JSON API for spot search, archive fetches, and stats.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kitewatch/wind-archive/internal/archive"
	"github.com/kitewatch/wind-archive/internal/chart"
	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/storage"
)

const defaultSearchLimit = 10

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ArchiveService is the surface of the fetch pipeline the API exposes.
type ArchiveService interface {
	Fetch(ctx context.Context, req domain.ArchiveRequest) (domain.FetchRecord, domain.Dataset, error)
	Dataset(ctx context.Context, id string) (domain.FetchRecord, domain.Dataset, error)
	Stats(ctx context.Context, id string) (domain.FetchRecord, domain.Summary, error)
	Fetches(ctx context.Context) ([]domain.FetchRecord, error)
}

// Server exposes the service API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	service    ArchiveService
	spots      domain.SpotSearcher
	logger     *slog.Logger
}

// NewServer creates the HTTP server. A nil spots searcher disables the spot
// search route.
func NewServer(addr string, service ArchiveService, spots domain.SpotSearcher, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		spots:   spots,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/spots", s.handleSpotSearch)
	mux.HandleFunc("GET /api/archive", s.handleListFetches)
	mux.HandleFunc("POST /api/archive", s.handleFetch)
	mux.HandleFunc("GET /api/archive/{id}", s.handleDataset)
	mux.HandleFunc("GET /api/archive/{id}/stats", s.handleStats)
	mux.HandleFunc("GET /api/archive/{id}/chart", s.handleChart)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": domain.Models()})
}

func (s *Server) handleSpotSearch(w http.ResponseWriter, r *http.Request) {
	if s.spots == nil {
		writeError(w, http.StatusServiceUnavailable, "spot search is not configured")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	result, err := s.spots.SearchSpots(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("spot search failed", "query", query, "error", err)
		writeError(w, http.StatusBadGateway, "spot search failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fetchRequest is the POST /api/archive body.
type fetchRequest struct {
	SpotID    int    `json:"spot_id"`
	ModelID   int    `json:"model_id"`
	From      string `json:"from"` // YYYY-MM-DD
	To        string `json:"to"`   // YYYY-MM-DD
	StepHours int    `json:"step_hours,omitempty"`
	WithGusts bool   `json:"with_gusts,omitempty"`
}

type fetchResponse struct {
	Fetch   domain.FetchRecord `json:"fetch"`
	Dataset domain.Dataset     `json:"dataset"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var body fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := time.Parse("2006-01-02", body.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be formatted YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", body.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be formatted YYYY-MM-DD")
		return
	}

	req := domain.NewArchiveRequest(body.SpotID, body.ModelID, from, to)
	if body.StepHours > 0 {
		req.StepHours = body.StepHours
	}
	if body.WithGusts {
		req = req.WithGusts()
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, dataset, err := s.service.Fetch(r.Context(), req)
	if err != nil {
		if errors.Is(err, archive.ErrTableNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "archive page carries no data table")
			return
		}
		s.logger.Error("archive fetch failed", "spot_id", body.SpotID, "error", err)
		writeError(w, http.StatusBadGateway, "archive fetch failed")
		return
	}

	writeJSON(w, http.StatusCreated, fetchResponse{Fetch: record, Dataset: dataset})
}

func (s *Server) handleListFetches(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.Fetches(r.Context())
	if err != nil {
		s.logger.Error("list fetches failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list fetches failed")
		return
	}
	if records == nil {
		records = []domain.FetchRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fetches": records})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	record, dataset, err := s.service.Dataset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, r.PathValue("id"), err)
		return
	}
	writeJSON(w, http.StatusOK, fetchResponse{Fetch: record, Dataset: dataset})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	record, summary, err := s.service.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, r.PathValue("id"), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fetch": record, "summary": summary})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	record, dataset, err := s.service.Dataset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, r.PathValue("id"), err)
		return
	}
	if dataset.Len() == 0 {
		writeError(w, http.StatusUnprocessableEntity, "fetch has no points to chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(w, record, dataset); err != nil {
		s.logger.Error("chart render failed", "fetch_id", record.ID, "error", err)
	}
}

func (s *Server) writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no fetch with id "+id)
		return
	}
	s.logger.Error("fetch lookup failed", "fetch_id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "fetch lookup failed")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
