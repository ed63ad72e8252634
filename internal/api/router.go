// Package api wires configuration, repositories, background jobs and HTTP
// handlers into the Gin engine served by cmd/server.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/admitai/admitai-korea/internal/api/accounts"
	"github.com/admitai/admitai-korea/internal/api/contact"
	"github.com/admitai/admitai-korea/internal/api/parity"
	"github.com/admitai/admitai-korea/internal/api/storytelling"
	"github.com/admitai/admitai-korea/internal/api/timeline"
	"github.com/admitai/admitai-korea/internal/auth"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/crypto"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/feedback"
	"github.com/admitai/admitai-korea/internal/jobs"
	"github.com/admitai/admitai-korea/internal/middleware"
	"github.com/admitai/admitai-korea/internal/notify"
	"github.com/admitai/admitai-korea/internal/safego"
	"github.com/admitai/admitai-korea/internal/seo"
	"github.com/admitai/admitai-korea/internal/storage"
	"github.com/admitai/admitai-korea/internal/storage/local"
	"github.com/admitai/admitai-korea/internal/telemetry"

	// Storage backends register themselves with the factory.
	_ "github.com/admitai/admitai-korea/internal/storage/azure"
	_ "github.com/admitai/admitai-korea/internal/storage/gcs"
	_ "github.com/admitai/admitai-korea/internal/storage/s3"
)

// shutdownDrainTimeout bounds how long Shutdown waits for in-flight audit
// writes and notification emails.
const shutdownDrainTimeout = 10 * time.Second

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	cancel         context.CancelFunc
	reminderJob    *jobs.TaskReminderNotifier
	rateLimiters   []*middleware.RateLimiter
	redisClient    *redis.Client
	drainTimeout   time.Duration
	shutdownCalled bool
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	if bg == nil || bg.shutdownCalled {
		return
	}
	bg.shutdownCalled = true

	slog.Info("stopping background services")
	if bg.reminderJob != nil {
		bg.reminderJob.Stop()
	}
	if bg.cancel != nil {
		bg.cancel()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}

	timeout := bg.drainTimeout
	if timeout <= 0 {
		timeout = shutdownDrainTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := safego.Wait(ctx); err != nil {
		slog.Warn("background goroutines still running at shutdown", "error", err)
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	dev := cfg.Server.IsDevelopment()
	ctx, cancel := context.WithCancel(context.Background())
	bg := &BackgroundServices{cancel: cancel}

	fail := func(err error) (*gin.Engine, *BackgroundServices, error) {
		bg.Shutdown()
		return nil, nil, err
	}

	// Snapshot storage
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage backend: %w", err))
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)
	parityStore := seo.NewStore(storageBackend, cfg.SEO.SnapshotKey)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, dev)
	if err != nil {
		return fail(fmt.Errorf("security configuration error: %w", err))
	}

	generator, aiStatus, err := feedback.New(ctx, cfg.AI)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize feedback generator: %w", err))
	}
	slog.Info("feedback generator ready", "provider", generator.Provider(), "model", aiStatus.Model)

	cipher, err := crypto.FromEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		if !errors.Is(err, crypto.ErrMissingKey) {
			return fail(fmt.Errorf("failed to initialize field cipher: %w", err))
		}
		slog.Warn("ENCRYPTION_KEY is not set; contact phone numbers will not be stored")
		cipher = nil
	}

	mailer := notify.New(&cfg.Notifications)

	sqlxDB := sqlx.NewDb(db, "postgres")
	auditRepo := repositories.NewAuditRepository(sqlxDB)
	timelineRepo := repositories.NewTimelineRepository(sqlxDB)

	// Rate limiters
	var generalLimiter, authLimiter middleware.Limiter
	if cfg.Security.RateLimiting.Enabled {
		generalCfg := middleware.DefaultRateLimitConfig(cfg.Security.RateLimiting)
		authCfg := middleware.AuthRateLimitConfig()

		if cfg.Security.RateLimiting.RedisURL != "" {
			client, err := middleware.NewRedisClient(cfg.Security.RateLimiting.RedisURL)
			if err != nil {
				return fail(fmt.Errorf("failed to initialize rate limit store: %w", err))
			}
			bg.redisClient = client
			generalLimiter = middleware.NewRedisLimiter(client, generalCfg, "rl:general:")
			authLimiter = middleware.NewRedisLimiter(client, authCfg, "rl:auth:")
			slog.Info("rate limiting backed by redis")
		} else {
			general := middleware.NewRateLimiter(generalCfg)
			strict := middleware.NewRateLimiter(authCfg)
			bg.rateLimiters = append(bg.rateLimiters, general, strict)
			generalLimiter, authLimiter = general, strict
		}
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.Recovery(dev))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.ErrorHandler(dev))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	// System endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, parityStore, aiStatus))
	router.GET("/version", versionHandler())
	router.GET("/ai/status", aiStatusHandler(aiStatus))
	router.GET("/robots.txt", robotsHandler(cfg))
	router.GET("/sitemap.xml", sitemapHandler(cfg))

	optionalAuth := middleware.OptionalAuthMiddleware(tokens)
	requireAuth := middleware.AuthMiddleware(tokens)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)
	audit := middleware.AuditMiddleware(auditRepo)

	// Sessions are read before the limiter so signed-in callers are limited
	// per user rather than per address.
	apiGroup := router.Group("/api")
	apiGroup.Use(optionalAuth)
	if generalLimiter != nil {
		apiGroup.Use(middleware.RateLimitMiddleware(generalLimiter))
	}
	{
		accountHandlers := accounts.NewHandlers(cfg, sqlxDB, tokens)

		authGroup := apiGroup.Group("/auth")
		if authLimiter != nil {
			authGroup.Use(middleware.RateLimitMiddleware(authLimiter))
		}
		accountHandlers.RegisterAuth(authGroup, requireAuth)

		storyGroup := apiGroup.Group("/storytelling")
		storyGroup.Use(audit)
		storytelling.NewHandlers(cfg, sqlxDB, generator).Register(storyGroup)

		timelineGroup := apiGroup.Group("/timeline")
		timelineGroup.Use(audit)
		timeline.NewHandlers(cfg, sqlxDB).Register(timelineGroup)

		seoGroup := apiGroup.Group("/seo")
		seoGroup.Use(audit)
		parity.NewHandlers(cfg, parityStore).Register(seoGroup, requireAdmin)

		apiGroup.POST("/contact", contact.NewHandlers(cfg, sqlxDB, cipher, mailer).SubmitHandler())

		usersGroup := apiGroup.Group("/users")
		usersGroup.Use(requireAuth, audit)
		accountHandlers.RegisterUsers(usersGroup, requireAdmin)
	}

	router.NoRoute(middleware.NoRoute)

	// Background jobs
	bg.reminderJob = jobs.NewTaskReminderNotifier(timelineRepo, mailer, &cfg.Notifications)
	go bg.reminderJob.Start(ctx)

	telemetry.StartDBStatsCollector(ctx, db)

	if ls, ok := storageBackend.(*local.LocalStorage); ok {
		startSnapshotWatcher(ctx, parityStore, ls, cfg.SEO.SnapshotKey)
	}

	return router, bg, nil
}

// startSnapshotWatcher follows the local snapshot file so hand edits and
// out-of-process ingests are picked up without a restart.
func startSnapshotWatcher(ctx context.Context, store *seo.Store, ls *local.LocalStorage, key string) {
	file, err := ls.Path(key)
	if err != nil {
		slog.Warn("parity snapshot watcher disabled", "key", key, "error", err)
		return
	}
	w, err := seo.NewWatcher(store, file)
	if err != nil {
		slog.Warn("parity snapshot watcher disabled", "file", file, "error", err)
		return
	}
	go w.Run(ctx)
}
