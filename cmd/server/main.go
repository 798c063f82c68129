// Command server runs the code generation gateway and snippet store.
//
// main only reads configuration, builds the long-lived resources (logger,
// tracer provider, snippet store, rate-limit store) and hands them to
// internal/server.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/codegen-gateway/internal/config"
	"github.com/sakif/codegen-gateway/internal/middleware"
	"github.com/sakif/codegen-gateway/internal/repository"
	"github.com/sakif/codegen-gateway/internal/repository/mongo"
	"github.com/sakif/codegen-gateway/internal/repository/sqlite"
	"github.com/sakif/codegen-gateway/internal/server"
	"github.com/sakif/codegen-gateway/internal/tracing"
)

// startupTimeout bounds connecting to and pinging external stores.
const startupTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.GroqAPIKey == "" {
		logger.Warn("GROQ_API_KEY not set, code generation will return 401")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, protected routes will reject every request")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open snippet store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Server.Run shuts the provider down, flushing buffered spans.
	tp, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	deps := server.Deps{Store: store, TracerProvider: tp}

	if cfg.RedisURL != "" {
		client, err := middleware.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()

		// An unreachable Redis is not fatal: the limiter fails open.
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", slog.String("error", err.Error()))
		}
		deps.RateLimitStore = middleware.NewRedisStore(client, "codegen:ratelimit")
	}

	srv, err := server.New(cfg, logger, deps)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger writes JSON in production and human-readable text elsewhere.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore opens the configured backend and checks it is reachable.
// It returns nil when no backend is configured.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var (
		store repository.Store
		err   error
	)

	switch cfg.StoreBackend() {
	case config.StoreMongo:
		store, err = mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, err
		}
		store, err = sqlite.New(cfg.DBPath)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
