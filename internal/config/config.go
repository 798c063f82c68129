// Package config loads server configuration from the environment.
//
// An optional .env file in the working directory is read first with godotenv.
// Variables already present in the process environment always win, so the
// same binary behaves identically under docker-compose, systemd or a shell.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends, in order of preference.
const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
	StoreNone   = ""
)

// Config holds all application configuration.
type Config struct {
	Port     int
	Env      string
	LogLevel slog.Level

	// Upstream LLM (OpenAI-compatible chat completions).
	GroqAPIKey  string
	GroqBaseURL string

	// Snippet store. MONGO_URI takes precedence over DB_PATH.
	MongoURI      string
	MongoDatabase string
	DBPath        string

	// Auth
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	AuthRedirectURL    string

	// Rate limiting. An empty RedisURL keeps counters in process memory.
	RedisURL        string
	RateLimitMax    int
	RateLimitWindow time.Duration

	CORSAllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MetricsEnabled bool

	// Tracing. Spans are exported over OTLP/gRPC only when the endpoint is
	// set; trace context is propagated either way.
	OTelEndpoint    string
	OTelServiceName string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from the process environment without validating it.
func FromEnv() *Config {
	port := getEnvInt("PORT", 5000)

	return &Config{
		Port:     port,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "info")),

		GroqAPIKey:  strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "codegen"),
		DBPath:        getEnv("DB_PATH", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/api/auth/github/callback", port)),
		AuthRedirectURL:    getEnv("AUTH_REDIRECT_URL", "/"),

		RedisURL:        getEnv("REDIS_URL", ""),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		// Generation requests wait on the upstream model, so the write
		// timeout is far longer than the read timeout.
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 2*time.Minute),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "codegen-gateway"),
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.StoreBackend() != StoreNone && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when a snippet store is configured")
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// IsProduction reports whether error diagnostics should be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// StoreBackend names the snippet store to open, or StoreNone.
func (c *Config) StoreBackend() string {
	switch {
	case c.MongoURI != "":
		return StoreMongo
	case c.DBPath != "":
		return StoreSQLite
	default:
		return StoreNone
	}
}

// GitHubEnabled reports whether the OAuth login routes can be mounted.
func (c *Config) GitHubEnabled() bool {
	return c.JWTSecret != "" && c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
