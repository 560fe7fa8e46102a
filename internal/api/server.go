// Package api exposes the HTTP interface serving the published dataset and
// its derived artifacts.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
	"github.com/budzetlodz/budzetmapa/internal/output"
)

// Server wires HTTP handlers to the data directory holding the artifacts of
// the most recent pipeline run.
type Server struct {
	router  chi.Router
	dataDir string
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(dataDir string, logger *zap.Logger) *Server {
	s := &Server{
		dataDir: dataDir,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dataset", s.getDataset)
		r.Get("/projects", s.listProjects)
		r.Get("/projects/{project_id}", s.getProject)
	})

	r.Get("/data/*", s.serveArtifact)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready only once a dataset exists to serve.
func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if _, err := os.Stat(filepath.Join(s.dataDir, output.DatasetFile)); err != nil {
		writeError(w, http.StatusServiceUnavailable, "dataset not yet generated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getDataset(w http.ResponseWriter, _ *http.Request) {
	ds, ok := s.loadDataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) listProjects(w http.ResponseWriter, _ *http.Request) {
	ds, ok := s.loadDataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metadata": ds.Metadata,
		"projects": ds.Projects,
	})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	ds, ok := s.loadDataset(w)
	if !ok {
		return
	}
	for _, record := range ds.Projects {
		if record.ID == projectID {
			writeJSON(w, http.StatusOK, record)
			return
		}
	}
	writeError(w, http.StatusNotFound, "project not found")
}

// serveArtifact streams a generated file (dataset, GeoJSON, sitemap) straight
// from the data directory. The rooted Clean keeps requests inside it.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	path := filepath.Join(s.dataDir, filepath.Clean("/"+name))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) loadDataset(w http.ResponseWriter) (budget.Dataset, bool) {
	raw, err := os.ReadFile(filepath.Join(s.dataDir, output.DatasetFile))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "dataset not yet generated")
		return budget.Dataset{}, false
	}
	var ds budget.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		s.logger.Error("dataset parse failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "dataset unreadable")
		return budget.Dataset{}, false
	}
	return ds, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
