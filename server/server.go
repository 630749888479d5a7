// Package server exposes a team.Team's Public Surface over HTTP: the
// Start/Pause/Resume/Stop/SetEnv lifecycle as a REST control surface,
// GetCleanedState as a read endpoint, and the log stream as a
// websocket subscription feed. It is the only network-facing package
// in the module; every other package is a plain Go library.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loomwork/loom/observability"
	"github.com/loomwork/loom/team"
)

// Config configures the HTTP server.
type Config struct {
	Addr string // e.g. ":8080"

	// Metrics, when non-nil, is mounted at MetricsPath and every
	// request is recorded through it.
	Metrics     *observability.Metrics
	MetricsPath string // defaults to observability.DefaultMetricsPath
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = observability.DefaultMetricsPath
	}
}

// Server wraps an http.Server bound to a single team's Public Surface.
type Server struct {
	cfg  Config
	team *team.Team
	http *http.Server
}

// New builds a Server around tm. Call Start to begin serving.
func New(tm *team.Team, cfg Config) *Server {
	cfg.setDefaults()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware(cfg.Metrics))

	h := &handlers{team: tm}
	r.Route("/v1/team", func(r chi.Router) {
		r.Post("/start", h.start)
		r.Post("/pause", h.pause)
		r.Post("/resume", h.resume)
		r.Post("/stop", h.stop)
		r.Post("/env", h.setEnv)
		r.Get("/state", h.getState)
		r.Get("/subscribe", h.subscribe)
	})

	if cfg.Metrics != nil {
		r.Get(cfg.MetricsPath, cfg.Metrics.Handler().ServeHTTP)
	}

	return &Server{
		cfg:  cfg,
		team: tm,
		http: &http.Server{Addr: cfg.Addr, Handler: r},
	}
}

// Start begins serving in the background. It returns once the listener
// is open; a listen failure, or a failure after that point, is reported
// through the returned channel's single error value (nil on a clean
// Shutdown).
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		errCh <- fmt.Errorf("server: listen: %w", err)
		return errCh
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: serve: %w", err)
			return
		}
		errCh <- nil
	}()
	return errCh
}

// Shutdown gracefully stops the HTTP server, waiting up to ctx's
// deadline for in-flight requests (including open websocket
// subscriptions) to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Addr returns the server's configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Handler returns the server's routed http.Handler directly, without
// binding a listener. Exists so tests can drive it through
// httptest.NewServer instead of a real network port.
func (s *Server) Handler() http.Handler { return s.http.Handler }
