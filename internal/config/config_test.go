package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable FromEnv reads. getEnv treats "" as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "GROQ_API_KEY", "GROQ_BASE_URL",
		"MONGO_URI", "MONGO_DATABASE", "DB_PATH", "JWT_SECRET",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
		"AUTH_REDIRECT_URL", "REDIS_URL", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW",
		"CORS_ALLOWED_ORIGINS", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "METRICS_ENABLED",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.GroqBaseURL)
	assert.Equal(t, "codegen", cfg.MongoDatabase)
	assert.Equal(t, "http://localhost:5000/api/auth/github/callback", cfg.GitHubCallbackURL)
	assert.Equal(t, "/", cfg.AuthRedirectURL)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.OTelEndpoint)
	assert.Equal(t, "codegen-gateway", cfg.OTelServiceName)
	assert.Equal(t, StoreNone, cfg.StoreBackend())
	assert.False(t, cfg.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GROQ_API_KEY", "  gsk_test  ")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")

	cfg := FromEnv()

	assert.Equal(t, 8081, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "gsk_test", cfg.GroqAPIKey)
	assert.Equal(t, 5, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "http://collector:4317", cfg.OTelEndpoint)
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg := FromEnv()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestStoreBackend(t *testing.T) {
	tests := []struct {
		name   string
		mongo  string
		dbPath string
		want   string
	}{
		{"none", "", "", StoreNone},
		{"sqlite", "", "data/snippets.db", StoreSQLite},
		{"mongo", "mongodb://localhost:27017", "", StoreMongo},
		{"mongo wins", "mongodb://localhost:27017", "data/snippets.db", StoreMongo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{MongoURI: tt.mongo, DBPath: tt.dbPath}
			assert.Equal(t, tt.want, cfg.StoreBackend())
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Port: 5000, RateLimitMax: 100, RateLimitWindow: time.Minute}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Port = 0 }, "out of range"},
		{"port too big", func(c *Config) { c.Port = 70000 }, "out of range"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 16"},
		{"store without secret", func(c *Config) { c.DBPath = "x.db" }, "JWT_SECRET is required"},
		{"store with secret", func(c *Config) {
			c.DBPath = "x.db"
			c.JWTSecret = "0123456789abcdef"
		}, ""},
		{"zero limit", func(c *Config) { c.RateLimitMax = 0 }, "RATE_LIMIT_MAX"},
		{"zero window", func(c *Config) { c.RateLimitWindow = 0 }, "RATE_LIMIT_WINDOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGitHubEnabled(t *testing.T) {
	cfg := &Config{GitHubClientID: "id", GitHubClientSecret: "secret"}
	assert.False(t, cfg.GitHubEnabled(), "no JWT secret to sign tokens with")

	cfg.JWTSecret = "0123456789abcdef"
	assert.True(t, cfg.GitHubEnabled())
}
