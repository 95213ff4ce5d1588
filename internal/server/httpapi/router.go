// Package httpapi is the HTTP surface of the auth core: the legacy
// migrate-login route, the modern session routes, read-only flag and metric
// views, Prometheus exposition and a liveness probe.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/chapterhub/internal/logging"
)

// RateLimit bounds credential-bearing routes per client IP. Zero Requests
// disables limiting.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// NewRouter mounts every route on a chi router. gatherer backs /metrics and
// may be nil to leave it unmounted.
func NewRouter(h *Handler, rl RateLimit, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	limit := h.limiter(rl)

	r.Route("/auth", func(r chi.Router) {
		r.With(limit).Post("/migrate-login", h.migrateLogin)
		r.With(limit).Post("/sign-in/email", h.signIn)
		r.Get("/session", h.currentSession)
		r.Post("/sign-out", h.signOut)

		r.Get("/migration-status", h.migrationStatus)
		r.Get("/feature-flags", h.featureFlags)
		r.Get("/metrics", h.metricsSnapshot)
		r.Get("/metrics/detailed", h.metricsDetailed)
		r.Get("/metrics/timeseries", h.timeseries)
		r.Get("/security/stats", h.securityStats)
	})

	r.Get("/healthz", h.healthz)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) limiter(rl RateLimit) func(http.Handler) http.Handler {
	if rl.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		rl.Requests,
		rl.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(h.rateLimited),
	)
}

// Server runs the router until its context is cancelled.
type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{address: address, handler: handler, logger: logger.With("module", "http_server")}
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on l and shuts down gracefully once ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", l.Addr().String())

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
