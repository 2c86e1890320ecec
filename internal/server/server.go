package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/timingbelt/internal/config"
	"github.com/me/timingbelt/internal/demo"
	"github.com/me/timingbelt/internal/store"
	"github.com/me/timingbelt/pkg/model"
)

// Runner executes functions on the goroutine that owns the belt.
// *timer.Loop implements it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// StatsSource provides aggregated cycle statistics.
// *metrics.Collector implements it.
type StatsSource interface {
	Snapshot() model.Stats
	Reset()
}

// Server is the timingbelt inspection and control API.
type Server struct {
	router      chi.Router
	logger      *slog.Logger
	config      config.ServerConfig
	startTime   time.Time
	loop        Runner
	harness     *demo.Harness
	stats       StatsSource     // optional; /stats answers 503 without it
	store       store.Store     // optional; /cycles answers 503 without it
	recorder    *store.Recorder // optional; reported by /health
	sseInterval time.Duration
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStats sets the statistics source used by /stats and /sse/stats.
func WithStats(src StatsSource) Option {
	return func(s *Server) {
		s.stats = src
	}
}

// WithStore sets the trace store used by /cycles.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithRecorder reports the trace recorder's counters in /health.
func WithRecorder(rec *store.Recorder) Option {
	return func(s *Server) {
		s.recorder = rec
	}
}

// WithSSEInterval sets how often /sse/stats pushes a snapshot.
func WithSSEInterval(d time.Duration) Option {
	return func(s *Server) {
		s.sseInterval = d
	}
}

// New creates a new Server with all routes registered. Every harness call is
// made through loop.
func New(cfg config.ServerConfig, loop Runner, h *demo.Harness, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With("component", "server"),
		config:      cfg,
		startTime:   time.Now(),
		loop:        loop,
		harness:     h,
		sseInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Delete("/stats", s.handleResetStats)

		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)

		r.Route("/renderables", func(r chi.Router) {
			r.Get("/", s.handleListRenderables)
			r.Post("/", s.handleCreateRenderable)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRenderable)
				r.Put("/", s.handleUpdateRenderable)
				r.Delete("/", s.handleDeleteRenderable)
				r.Post("/update", s.handleScheduleRenderableUpdate)
			})
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleCreateJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetJob)
				r.Delete("/", s.handleCancelJob)
			})
		})

		r.Route("/cycles", func(r chi.Router) {
			r.Get("/", s.handleListCycles)
			r.Get("/{id}", s.handleGetCycle)
		})

		r.Route("/sse", func(r chi.Router) {
			r.Get("/stats", s.handleSSEStats)
		})
	})
}

// do runs fn on the belt goroutine for the duration of the request.
func (s *Server) do(r *http.Request, fn func()) error {
	return s.loop.Do(r.Context(), fn)
}
