// Package httpapi exposes the relay over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kaptinlin/jsonschema"
	"github.com/sony/gobreaker/v2"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/middleware"
)

// DefaultMaxBodyBytes caps request bodies when Deps.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 1 << 20

// Completer runs completions for the configured modes.
type Completer interface {
	Complete(ctx context.Context, mode domain.Mode, req domain.CompletionRequest) (*domain.CompletionResult, error)
	Supports(mode domain.Mode) bool
	Personalities() []domain.Personality
}

// ModelCatalog resolves the model listing for a credential.
type ModelCatalog interface {
	Resolve(ctx context.Context, credential string) domain.Catalog
}

// BreakerState reports the upstream circuit breaker; nil when disabled.
type BreakerState interface {
	State() gobreaker.State
}

// Deps holds everything the HTTP layer needs.
type Deps struct {
	Deployment     string
	ChatMode       domain.Mode // mode served by POST /api/chat
	Upstream       string
	Relay          Completer
	Catalog        ModelCatalog
	Breaker        BreakerState
	MaxBodyBytes   int64
	TrustedProxies []string
	Logger         *slog.Logger
}

// Server is the relay's HTTP front end.
type Server struct {
	router  chi.Router
	deps    Deps
	schema  *jsonschema.Schema
	metrics *Metrics
	started time.Time
}

// New compiles the request schema and builds the router.
func New(deps Deps) (*Server, error) {
	if deps.Relay == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("httpapi: relay and catalog are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}

	schema, err := jsonschema.NewCompiler().Compile([]byte(completionSchema))
	if err != nil {
		return nil, fmt.Errorf("httpapi: compile request schema: %w", err)
	}

	s := &Server{
		deps:    deps,
		schema:  schema,
		metrics: NewMetrics(),
		started: time.Now(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogger(s.deps.Logger, s.deps.TrustedProxies))
	r.Use(chimw.Recoverer)

	r.Post("/api/chat", s.handleCompletion(s.deps.ChatMode))
	r.Post("/api/coach", s.handleCompletion(domain.ModeCoach))
	r.Post("/api/reply", s.handleCompletion(domain.ModeReply))
	r.Get("/api/models", s.handleModels)
	r.Get("/api/personalities", s.handlePersonalities)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", statusHandler(s.deps, s.started, s.metrics))
	r.Get("/metrics", metricsHandler(s.deps, s.started, s.metrics))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	s.router = r
}

// ServeHTTP delegates to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics { return s.metrics }

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not Found"))
}
