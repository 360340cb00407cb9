// Package server exposes the HTTP surface: the on-demand ingestion
// trigger, the read API for stored events, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geowatch/geowatch/event"
	"github.com/geowatch/geowatch/ingest"
)

// Runner triggers an ingestion cycle.
type Runner interface {
	Run(ctx context.Context) (*ingest.Result, error)
}

// EventReader is the slice of the store the read API uses.
type EventReader interface {
	ListRecent(ctx context.Context, limit int) ([]event.Event, error)
	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	// EventsLimit caps and defaults the read-API page size.
	EventsLimit int
}

// Server wires the HTTP routes.
type Server struct {
	runner Runner
	reader EventReader
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// New creates the server and its routes.
func New(runner Runner, reader EventReader, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EventsLimit <= 0 {
		opts.EventsLimit = 100
	}

	s := &Server{
		runner: runner,
		reader: reader,
		opts:   opts,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Post("/api/ingest", s.handleIngest)
	r.Get("/api/events", s.handleEvents)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleIngest runs one ingestion cycle synchronously and reports the
// processed count. A cycle already in flight yields 409 rather than a
// second concurrent purge/insert.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, ingest.ErrCycleInFlight) {
			s.writeError(w, http.StatusConflict, err)
			return
		}
		s.logger.Error("Ingestion cycle failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if result.Processed == 0 {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "No events found or API issue",
			"count":   0,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Intelligence processed successfully",
		"processed": result.Processed,
	})
}

// handleEvents serves stored events ordered by occurrence time
// descending, for the map UI.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.EventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		if n < limit {
			limit = n
		}
	}

	events, err := s.reader.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list events", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    events,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.reader.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
