// Package http exposes the simulation service plus health, readiness, and
// metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/observability"
	"github.com/agroclim/gdd-tracker/internal/service"
)

// SimulationRunner executes one simulation end to end.
type SimulationRunner interface {
	Run(ctx context.Context, req service.Request, sink domain.ProgressSink) (service.Outcome, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes simulation, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runner     SimulationRunner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/simulations, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, runner SimulationRunner, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute, // one run can span many block fetches
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		logger: logger,
	}

	mux.HandleFunc("POST /v1/simulations", s.handleSimulate)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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

type simulateRequest struct {
	Place       string    `json:"place,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	Start       string    `json:"start"` // YYYY-MM-DD
	BaseTemp    float64   `json:"base_temp"`
	Targets     []float64 `json:"targets,omitempty"`
	HorizonDays int       `json:"horizon_days,omitempty"`
	BlockDays   int       `json:"block_days,omitempty"`
}

type simulateLocation struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label,omitempty"`
}

type simulateResponse struct {
	RunID     string           `json:"run_id"`
	Location  simulateLocation `json:"location"`
	Records   []domain.Record  `json:"records"`
	Stages    domain.Stages    `json:"stages"`
	Completed bool             `json:"completed"`
	Error     string           `json:"error,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return
	}

	start, err := time.Parse(time.DateOnly, req.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be a YYYY-MM-DD date"})
		return
	}

	out, err := s.runner.Run(r.Context(), service.Request{
		Place:       req.Place,
		Lat:         req.Lat,
		Lon:         req.Lon,
		Start:       start,
		BaseTemp:    req.BaseTemp,
		Targets:     req.Targets,
		HorizonDays: req.HorizonDays,
		BlockDays:   req.BlockDays,
	}, observability.LogSink{Logger: s.logger})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrPlaceNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	resp := simulateResponse{
		RunID: out.RunID,
		Location: simulateLocation{
			Lat:   out.Lat,
			Lon:   out.Lon,
			Label: out.Location,
		},
		Records:   out.Result.Records,
		Stages:    out.Result.Stages,
		Completed: out.Result.Completed,
	}
	if out.RunErr != nil {
		resp.Error = out.RunErr.Error()
	}
	// A fetch failure mid-run is still a 200: the partial result is the
	// payload, marked incomplete.
	writeJSON(w, http.StatusOK, resp)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
