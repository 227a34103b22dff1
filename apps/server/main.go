package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kessler/gitstow/apps/server/internal/platform/config"
	"github.com/kessler/gitstow/apps/server/internal/platform/logger"
	"github.com/kessler/gitstow/apps/server/internal/platform/telemetry"
	"github.com/kessler/gitstow/apps/server/internal/platform/validation"
	"github.com/kessler/gitstow/apps/server/internal/upload"
	"github.com/kessler/gitstow/apps/server/internal/upload/adapters"
	"github.com/kessler/gitstow/apps/server/internal/upload/githubapi"
	"github.com/kessler/gitstow/apps/server/internal/upload/store"
	"github.com/kessler/gitstow/schemas"
)

func main() {
	slog := logger.New()

	cfg, err := config.Load(os.Getenv("GITSTOW_CONFIG"))
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	// --- Observability ---

	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		os.Setenv("OTEL_SERVICE_NAME", "gitstow-server") //nolint:errcheck
	}

	ctx := context.Background()
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Stores ---

	var sessions upload.SessionStore
	var creds upload.CredentialStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close() //nolint:errcheck
		sessions = store.NewRedisSessionStore(rdb)
		creds = store.NewRedisCredentialStore(rdb)
		slog.Info("using redis stores", "addr", cfg.RedisAddr)
	} else {
		sessions = store.NewMemorySessionStore()
		creds = store.NewMemoryCredentialStore("")
		slog.Warn("REDIS_ADDR not set, session state will not survive restarts")
	}

	// --- Upload pipeline ---

	gateway := githubapi.NewClient(cfg.GitHubBaseURL, creds, slog,
		githubapi.WithRetries(cfg.RetryBudget),
		githubapi.WithBackoff(cfg.BackoffBase),
	)
	hub := adapters.NewHub(slog)
	svc := upload.NewService(
		githubapi.NewResolver(gateway),
		githubapi.NewExecutor(gateway),
		sessions,
		hub,
		slog,
	)

	// --- HTTP ---

	router := gin.New()

	validator, err := validation.New(schemas.OpenAPISpec)
	if err != nil {
		slog.Error("openapi validation middleware init failed", "error", err)
		os.Exit(1)
	}

	router.Use(gin.Recovery(), otelgin.Middleware("gitstow-server"), validator)
	adapters.RegisterRoutes(router, svc, creds, hub, slog)

	slog.Info("starting gitstow", "port", cfg.Port, "github", cfg.GitHubBaseURL)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
