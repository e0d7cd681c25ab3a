// Package api exposes the goal pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/example/goalbot/internal/orchestrator"
	"github.com/example/goalbot/internal/store"
	"github.com/example/goalbot/internal/tracing"
)

const (
	sessionHeader  = "X-Session-ID"
	requestHeader  = "X-Request-ID"
	defaultSession = "default-session"
)

type Server struct {
	pipeline *orchestrator.Pipeline
	store    *store.Store
	logger   *zap.Logger
	now      func() time.Time
}

func New(p *orchestrator.Pipeline, st *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: p, store: st, logger: logger.Named("api"), now: func() time.Time { return time.Now().UTC() }}
}

// Handler returns the routes wrapped in request logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.logRequests(cors(mux))
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /goals", s.createGoal)
	mux.HandleFunc("POST /goals/create", s.createGoal)
	mux.HandleFunc("GET /goals", s.listGoals)
	mux.HandleFunc("GET /goals/{id}", s.getGoal)
	mux.HandleFunc("POST /goals/{id}/clarify", s.clarify)
	mux.HandleFunc("POST /goals/{id}/breakdown", s.breakdown)
	mux.HandleFunc("POST /goals/{id}/abandon", s.abandon)

	mux.HandleFunc("POST /goals/{id}/check-in", s.checkIn)
	mux.HandleFunc("GET /goals/{id}/check-ins", s.listCheckIns)
	mux.HandleFunc("GET /goals/{id}/progress", s.progressSummary)
	mux.HandleFunc("GET /goals/{id}/events", s.events)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func sessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(sessionHeader)); v != "" {
		return v
	}
	return defaultSession
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func respondError(w http.ResponseWriter, code int, detail string) {
	respondJSON(w, code, map[string]string{"detail": detail})
}

// fail maps pipeline and store errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Goal not found")
	case errors.Is(err, store.ErrDuplicateCheckIn):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "request cancelled before the pipeline finished")
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", w.Header().Get(requestHeader)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestHeader, id)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		ctx, span := tracing.Start(r.Context(), "http.request",
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
			attribute.String("request.id", id),
		)
		defer span.End()
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", rec.code))
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", id),
		)
	})
}

// simple CORS middleware for local dev
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
