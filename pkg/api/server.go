// Package api serves the cascade engine over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/db"
	"github.com/jakechorley/vacancy-cascade/pkg/metrics"
)

const defaultMaxBodyBytes = 10 << 20

// Options configures the router
type Options struct {
	// RateLimit is requests per minute per client IP; 0 disables limiting
	RateLimit int
	// MaxBodyBytes caps POST bodies
	MaxBodyBytes int64
}

// Server holds the handlers' dependencies
type Server struct {
	store   db.RunStore
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options
}

// NewServer creates a Server. A nil metrics gets a fresh registry.
func NewServer(store db.RunStore, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	if m == nil {
		m = metrics.New()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{store: store, metrics: m, logger: logger, opts: opts}
}

// Router builds the chi router with middleware applied
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(s.rateLimit(s.opts.RateLimit, time.Minute))
		}
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/awards.csv", s.handleGetRunCSV)
	})

	return r
}

func (s *Server) rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}),
	)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
