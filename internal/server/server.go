// Package server exposes the job registry over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/jobs"
	"github.com/maxvaer/dirgraph/internal/metrics"
)

const maxRequestBody = 1 << 20

// Server routes the job API.
type Server struct {
	registry *jobs.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New returns a Server for registry. m may be nil.
func New(registry *jobs.Registry, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{registry: registry, metrics: m, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/enumerate", s.handleStart)
	s.mux.HandleFunc("DELETE /api/enumerate/{id}", s.handleCancel)
	s.mux.HandleFunc("GET /api/jobs/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", m.Handler())
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(sw, r)
	s.logger.Debug("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", sw.status,
		"duration", time.Since(start),
	)
}

// ListenAndServe serves on addr until ctx is done, then shuts down the
// listener and the registry.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.registry.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("jobs did not stop in time", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type startResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req config.StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request: " + err.Error()})
		return
	}

	id, err := s.registry.Start(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{JobID: id})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Cancel(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrUnknownJob) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "canceled"})
}

// handleEvents streams a job's events as newline-delimited JSON. The
// response ends when the stream closes, after which the job is removed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")

	enc := json.NewEncoder(w)
	job, ok := s.registry.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = enc.Encode(events.Error(jobs.ErrUnknownJob.Error()))
		return
	}

	rc := http.NewResponseController(w)
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	for {
		ev, ok := job.Stream.Next(r.Context())
		if !ok {
			break
		}
		if err := enc.Encode(ev); err != nil {
			s.logger.Debug("event stream write failed", "job_id", id, "error", err)
			return
		}
		_ = rc.Flush()
	}

	if r.Context().Err() != nil {
		s.logger.Debug("event listener went away", "job_id", id)
		return
	}
	s.registry.Remove(id)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusWriter records the response status for request logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
