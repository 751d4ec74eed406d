// Package api exposes the validator over HTTP. Handlers are thin: load
// inputs from the store, call the engine, write results back. All payloads
// are JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/kval/internal/store"
	"github.com/sells-group/kval/internal/summary"
)

// Server holds the handler dependencies.
type Server struct {
	store       store.Store
	summarizer  summary.Summarizer
	examplesDir string
}

// NewServer builds a Server. The summarizer may be nil, in which case
// AI-assisted validation requests are rejected.
func NewServer(st store.Store, summarizer summary.Summarizer, examplesDir string) *Server {
	return &Server{store: st, summarizer: summarizer, examplesDir: examplesDir}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/knowledge", s.handleGetKnowledge)
		r.Put("/knowledge", s.handlePutKnowledge)
		r.Get("/reference", s.handleGetReference)
		r.Put("/reference", s.handlePutReference)
		r.Post("/validate", s.handleValidate)
		r.Get("/report", s.handleGetReport)
		r.Get("/reports", s.handleListReports)
		r.Get("/examples", s.handleListExamples)
		r.Post("/examples/{name}/load", s.handleLoadExample)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
