// Package api exposes the HTTP interface for the telemetry pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/metrics"
	"github.com/envimetry/pipeline/internal/pipeline"
	"github.com/envimetry/pipeline/internal/registry"
	"github.com/envimetry/pipeline/internal/telemetry"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "envimetry-pipeline"

// Runner is the pipeline surface the handlers need.
type Runner interface {
	RunCrawl(ctx context.Context, domain string, req pipeline.CrawlRequest) (pipeline.CrawlResult, error)
	RunProcess(ctx context.Context, domain string, content []byte) (pipeline.ProcessResult, error)
}

// Server wires HTTP handlers to the pipeline service.
type Server struct {
	router  chi.Router
	runner  Runner
	logger  *zap.Logger
	timeout time.Duration
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, logger *zap.Logger, timeout time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	s := &Server{
		runner:  runner,
		logger:  logger,
		timeout: timeout,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl/{domain}", s.crawl)
		r.Post("/process/{domain}", s.process)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

type crawlRequest struct {
	// Locations, when present, are crawled as given instead of the
	// registered set.
	Locations []telemetry.Location `json:"locations"`
	Filter    struct {
		Provinces []string `json:"provinces"`
		Names     []string `json:"names"`
		Limit     int      `json:"limit"`
	} `json:"filter"`
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	var req crawlRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	creq := pipeline.CrawlRequest{
		Locations: req.Locations,
		Filter: registry.Filter{
			Provinces: req.Filter.Provinces,
			Names:     req.Filter.Names,
			Limit:     req.Filter.Limit,
		},
	}

	res, err := s.runner.RunCrawl(r.Context(), domain, creq)
	if err != nil {
		s.writeRunError(w, domain, res, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type processRequest struct {
	CSVContent string `json:"csv_content"`
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CSVContent == "" {
		writeError(w, http.StatusBadRequest, "csv_content is required")
		return
	}

	res, err := s.runner.RunProcess(r.Context(), domain, []byte(req.CSVContent))
	if err != nil {
		s.writeRunError(w, domain, res, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeRunError maps pipeline failures onto statuses while keeping the
// structured result (counts, run id) in the body.
func (s *Server) writeRunError(w http.ResponseWriter, domain string, result any, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, telemetry.ErrAllSourcesFailed):
		status = http.StatusBadGateway
	case errors.Is(err, telemetry.ErrBatchEmpty):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, telemetry.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case isUnknownDomain(err):
		status = http.StatusNotFound
	}
	s.logger.Warn("run failed",
		zap.String("domain", domain),
		zap.Int("status", status),
		zap.Error(err))
	writeJSON(w, status, map[string]any{
		"error":  err.Error(),
		"result": result,
	})
}

func isUnknownDomain(err error) bool {
	return err != nil && (containsAny(err.Error(), "unknown domain", "no crawler configured"))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		metrics.IncHTTPRequest(r.Method, strconv.Itoa(ww.status))
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, time.Since(start))
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
