// Package server exposes the relay over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/modelrelay/modelrelay/internal/generator"
	"github.com/modelrelay/modelrelay/internal/guardrail"
	"github.com/modelrelay/modelrelay/internal/storage"
	"github.com/modelrelay/modelrelay/internal/template"
	"github.com/modelrelay/modelrelay/internal/tokens"
)

// Server wires the relay's handlers onto a chi router.
type Server struct {
	Router *chi.Mux
	Port   int

	httpServer *http.Server
	gen        *generator.Generator
	screener   *guardrail.Screener // nil when guardrails are disabled
	store      storage.Store
	counter    tokens.Counter
	renderer   template.Renderer
	backend    string
	model      string
	logger     *slog.Logger
}

// Options carries the server's collaborators and identity fields.
type Options struct {
	Port           int
	RequestTimeout time.Duration
	Generator      *generator.Generator
	Screener       *guardrail.Screener
	Store          storage.Store
	Counter        tokens.Counter
	Renderer       template.Renderer
	BackendName    string
	Model          string
	Logger         *slog.Logger
}

// New creates the server and mounts all routes.
func New(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Counter == nil {
		opts.Counter = tokens.Estimator{}
	}
	if opts.Renderer == nil {
		opts.Renderer = template.NewChatML()
	}

	s := &Server{
		Port:     opts.Port,
		gen:      opts.Generator,
		screener: opts.Screener,
		store:    opts.Store,
		counter:  opts.Counter,
		renderer: opts.Renderer,
		backend:  opts.BackendName,
		model:    opts.Model,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(opts.Logger))
	r.Use(TimeoutMiddleware(opts.RequestTimeout))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "modelrelay")
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/completions", s.handleListCompletions)
		r.Post("/evaluations", s.handleEvaluate)
	})

	s.Router = r
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: r,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections and waits for in-flight
// requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
