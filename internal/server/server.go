// Package server serves the windprofile computations as a JSON HTTP API.
//
// Every endpoint takes a JSON [pipeline.Options] body (or a small request
// type embedding its wind) and returns the pipeline result with its run ID,
// model hash and cache status:
//
//	POST /v1/depth         τ at one point, or along a whole ray
//	POST /v1/points        τ at paired (p, z) coordinates
//	POST /v1/grid          τ on a p × z grid
//	POST /v1/compare       scalar against grid evaluation
//	POST /v1/profile       binned line profile
//	POST /v1/transmission  angle-averaged transmission T(u)
//	POST /v1/luminosity    integrated luminosity and fractional emission
//	POST /v1/sweep         luminosity over a range of τ*
//	GET  /v1/stats         stage, cache and route counters
//	GET  /v1/version       build information
//	GET  /healthz          liveness
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with a
// status derived from the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/windprofile/pkg/observability"
	"github.com/matzehuels/windprofile/pkg/pipeline"
)

const (
	// DefaultAddr is the listen address of `windprofile serve`.
	DefaultAddr = ":8080"

	// DefaultTimeout bounds the computation of a single request.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxBody bounds the size of a request body.
	DefaultMaxBody = 4 << 20

	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP API over a pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	counters *observability.Counters
	timeout  time.Duration
	maxBody  int64
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithCounters serves the snapshot of c on /v1/stats. The caller registers
// c with the observability hooks.
func WithCounters(c *observability.Counters) Option {
	return func(s *Server) { s.counters = c }
}

// WithTimeout bounds the computation of each request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithMaxBody bounds the size of request bodies.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New creates a server. A nil logger discards output.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		runner:  runner,
		logger:  logger,
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/version", s.handleVersion)

		r.Group(func(r chi.Router) {
			r.Use(s.limit)
			r.Post("/depth", s.handleDepth)
			r.Post("/points", s.handlePoints)
			r.Post("/grid", s.handleGrid)
			r.Post("/compare", s.handleCompare)
			r.Post("/profile", s.handleProfile)
			r.Post("/transmission", s.handleTransmission)
			r.Post("/luminosity", s.handleLuminosity)
			r.Post("/sweep", s.handleSweep)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errNotFound(r.URL.Path))
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
