// Package server exposes the sort pipeline over HTTP.
//
// Routes:
//
//	POST /v1/sort      sort an image (raw body or multipart image+mask)
//	GET  /v1/presets   list parameter presets
//	GET  /healthz      build information
//
// Sort parameters are read from the query string, optionally on top of a
// named preset (?preset=melt&angle=20). The response body is the encoded
// image; X-Cache reports whether it came from the cache. Errors are JSON
// objects of the form {"code": "...", "message": "..."}.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
)

// Defaults.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 32 << 20
	DefaultTimeout      = 2 * time.Minute
	shutdownTimeout     = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	// MaxBodyBytes caps the request body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Timeout bounds one sort request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Workers is passed to every pass; see pipeline.Options.
	Workers int
}

// Server handles HTTP requests.
type Server struct {
	runner *pipeline.Runner
	config *config.Config
	logger *log.Logger
	opts   Options
	router chi.Router
}

// New creates a server around runner. cfg supplies presets and default
// output settings; nil means config.Default().
func New(runner *pipeline.Runner, cfg *config.Config, logger *log.Logger, opts Options) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	s := &Server{runner: runner, config: cfg, logger: logger, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/presets", s.handlePresets)
		r.Post("/sort", s.handleSort)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: errors.ErrCodeNotFound, Message: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: errors.ErrCodeInvalidInput, Message: r.Method + " not allowed"})
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
