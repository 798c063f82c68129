// Package server is the composition root: it wires services, handlers and
// middleware into one router and owns the HTTP server lifecycle.
//
// Resources that must outlive a single request (the snippet store and the
// rate-limit store) are created by the caller and injected, so tests can
// substitute in-memory versions.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sakif/codegen-gateway/internal/auth"
	"github.com/sakif/codegen-gateway/internal/config"
	"github.com/sakif/codegen-gateway/internal/handler"
	"github.com/sakif/codegen-gateway/internal/llm"
	"github.com/sakif/codegen-gateway/internal/middleware"
	"github.com/sakif/codegen-gateway/internal/repository"
	"github.com/sakif/codegen-gateway/internal/service"
	"github.com/sakif/codegen-gateway/internal/tracing"
)

// rateLimitCleanupInterval is how often expired in-memory windows are swept.
const rateLimitCleanupInterval = time.Minute

// Deps are the long-lived collaborators injected into the server.
type Deps struct {
	// Store backs the snippet routes. When nil they are not mounted.
	Store repository.Store
	// Chat overrides the LLM client built from the config.
	Chat service.ChatCompleter
	// RateLimitStore overrides the in-memory limiter store (e.g. Redis).
	RateLimitStore middleware.RateLimitStore
	// TracerProvider records server and upstream spans. When nil the global
	// provider is used and nothing is flushed on shutdown.
	TracerProvider *sdktrace.TracerProvider
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router   *chi.Mux
	handler  http.Handler
	config   *config.Config
	logger   *slog.Logger
	deps     Deps
	tokens   *auth.TokenService
	metrics  *middleware.Metrics
	memStore *middleware.MemoryStore
}

// New wires the dependency chain:
//
//	Store → SnippetService → SnippetHandler
//	Chat  → GenerationService → GenerateHandler
//
// and mounts everything on one router.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("creating token service: %w", err)
		}
		s.tokens = tokens
	}

	if cfg.MetricsEnabled {
		models := service.ListModels()
		ids := make([]string, 0, len(models))
		for _, m := range models {
			ids = append(ids, m.ID)
		}
		s.metrics = middleware.NewMetrics(ids...)
	}

	traceOpts := []otelhttp.Option{
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithPropagators(tracing.Propagator()),
	}
	if deps.TracerProvider != nil {
		traceOpts[0] = otelhttp.WithTracerProvider(deps.TracerProvider)
	}

	if s.deps.Chat == nil {
		s.deps.Chat = llm.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL, traceOpts...)
	}
	if s.deps.RateLimitStore == nil {
		s.memStore = middleware.NewMemoryStore()
		s.deps.RateLimitStore = s.memStore
	}

	s.setupRoutes()
	s.handler = otelhttp.NewHandler(s.router, "codegen-gateway", traceOpts...)

	return s, nil
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
// GET    /health                        → liveness
// GET    /metrics                       → Prometheus (METRICS_ENABLED)
// POST   /api/generate-code             → LLM code generation
// GET    /api/models                    → model catalog
// GET    /api/languages-frameworks      → language/framework catalog
// *      /api/dashboard                 → identity echo       [auth]
// CRUD   /api/snippets[/{id}]           → snippet store       [auth, store]
// GET    /api/auth/github/{login,callback}, POST /api/auth/logout [GitHub]
//
// Middleware runs in the order added. The limiter comes last so rejected
// requests still show up in logs and metrics.
func (s *Server) setupRoutes() {
	r := s.router
	resp := handler.NewResponder(s.logger, !s.config.IsProduction())

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(resp.Recover)
	r.Use(s.corsHandler())
	r.Use(middleware.SecureHeaders())
	r.Use(s.metrics.Middleware)
	r.Use(middleware.NewRateLimiter(
		s.deps.RateLimitStore,
		s.config.RateLimitMax,
		s.config.RateLimitWindow,
		"/api",
		s.logger,
		s.metrics,
	).Handler)

	// An unknown method on a known path is still "not found".
	r.NotFound(resp.NotFound)
	r.MethodNotAllowed(resp.NotFound)

	r.Get("/health", handler.HandleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	generator := service.NewGenerationService(s.deps.Chat, s.logger, s.metrics)
	generateHandler := handler.NewGenerateHandler(generator, resp)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-code", generateHandler.HandleGenerate)
		r.Get("/models", generateHandler.HandleModels)
		r.Get("/languages-frameworks", generateHandler.HandleLanguagesFrameworks)

		r.With(auth.RequireAuth(s.tokens)).HandleFunc("/dashboard", handler.HandleDashboard)

		if s.deps.Store != nil {
			snippets := service.NewSnippetService(s.deps.Store, s.logger, s.metrics)
			snippetHandler := handler.NewSnippetHandler(snippets, resp)

			r.Route("/snippets", func(r chi.Router) {
				r.Use(auth.RequireAuth(s.tokens))
				r.Post("/", snippetHandler.HandleCreate)
				r.Get("/", snippetHandler.HandleList)
				r.Get("/{id}", snippetHandler.HandleGet)
				r.Put("/{id}", snippetHandler.HandleUpdate)
				r.Delete("/{id}", snippetHandler.HandleDelete)
			})
		} else {
			s.logger.Warn("no snippet store configured, snippet routes disabled")
		}

		if s.config.GitHubEnabled() && s.tokens != nil {
			github := auth.NewGitHubProvider(
				s.config.GitHubClientID,
				s.config.GitHubClientSecret,
				s.config.GitHubCallbackURL,
			)
			authHandler := handler.NewAuthHandler(
				github, s.tokens, s.config.AuthRedirectURL, s.config.IsProduction(), resp, s.logger,
			)

			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
			r.Post("/auth/logout", authHandler.HandleLogout)
		}
	})
}

// corsHandler allows every origin by default. Credentials are only allowed
// with an explicit origin list, since browsers reject them alongside "*".
func (s *Server) corsHandler() func(http.Handler) http.Handler {
	origins := s.config.CORSAllowedOrigins
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: len(origins) > 0 && !slices.Contains(origins, "*"),
		MaxAge:           300,
	})
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to ShutdownTimeout for in-flight requests
//  3. flush pending spans
//  4. close the snippet store
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.deps.Store != nil {
		defer func() {
			if err := s.deps.Store.Close(); err != nil {
				s.logger.Error("closing snippet store", slog.String("error", err.Error()))
			}
		}()
	}

	if tp := s.deps.TracerProvider; tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				s.logger.Error("shutting down tracer provider", slog.String("error", err.Error()))
			}
		}()
	}

	if s.memStore != nil {
		go s.memStore.Cleanup(ctx, rateLimitCleanupInterval)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("store", s.config.StoreBackend()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
