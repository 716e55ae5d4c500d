// Package main runs the multi-tenant API server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/craftlane/backend/config"
	"github.com/craftlane/backend/internal/audit"
	"github.com/craftlane/backend/internal/auth"
	"github.com/craftlane/backend/internal/magiclink"
	"github.com/craftlane/backend/internal/middleware"
	"github.com/craftlane/backend/internal/oauth"
	"github.com/craftlane/backend/internal/permissions"
	"github.com/craftlane/backend/internal/ratelimit"
	"github.com/craftlane/backend/internal/rls"
	"github.com/craftlane/backend/internal/tenants"
	"github.com/craftlane/backend/internal/users"
	"github.com/craftlane/backend/pkg/cache"
	"github.com/craftlane/backend/pkg/database"
	"github.com/craftlane/backend/pkg/metrics"
	"github.com/craftlane/backend/pkg/queue"
	"github.com/craftlane/backend/pkg/redis"
	"github.com/craftlane/backend/pkg/response"
	"github.com/craftlane/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.BrandingBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			BrandingBucket:       cfg.AWS.BrandingBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	// Tenant cache and rate limiter can be memory-backed or Redis-backed;
	// multi-instance deployments want Redis so limits hold across replicas.
	var tenantCache cache.Cache
	var authLimiter ratelimit.Limiter
	if cfg.Tenant.UseRedis {
		tenantCache = cache.NewRedis(rdb.Client, "tenant")
		authLimiter = ratelimit.NewRedis(rdb.Client, cfg.Auth.RateLimitMax, cfg.Auth.RateLimitWindow, "ratelimit:auth")
	} else {
		tenantCache = cache.NewMemory()
		authLimiter = ratelimit.NewMemory(cfg.Auth.RateLimitMax, cfg.Auth.RateLimitWindow)
	}

	metrics.Register()

	// Queues and audit
	jobQueue := queue.NewQueue(rdb.Client, logger)
	recorder := audit.NewRecorder(jobQueue, logger)

	// Tenants
	tenantRepo := tenants.NewRepository(pool)
	resolver := tenants.NewResolver(tenantRepo, tenantCache, cfg.Tenant.BaseDomain, cfg.Tenant.CacheTTL, logger)
	tenantHandler := tenants.NewHandler(tenantRepo, resolver, s3Client, recorder, logger)

	// Auth
	codec := auth.NewTokenCodec(cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpireHours)*time.Hour,
		time.Duration(cfg.JWT.RefreshExpireDays)*24*time.Hour,
	)
	authRepo := auth.NewRepository(pool)
	sessions := auth.NewSessionManager(codec, authRepo, authRepo, tenantRepo, logger)
	authHandler := auth.NewHandler(sessions, authRepo, tenantRepo, recorder, logger)

	// Users (scoped directory)
	scoped := rls.NewScopedStore(pool)
	userRepo := users.NewRepository(scoped)
	userHandler := users.NewHandler(userRepo, authRepo, recorder, logger)

	// Magic links
	linkRepo := magiclink.NewRepository(pool)
	issuer := magiclink.NewIssuer(linkRepo, authRepo, tenantRepo, logger)
	magicHandler := magiclink.NewHandler(issuer, sessions, jobQueue, cfg.App.URL, logger)

	// OAuth
	providers := oauth.NewRegistry(
		oauth.ProviderConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		},
		oauth.ProviderConfig{
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			RedirectURL:  cfg.OAuth.GitHubRedirectURL,
		},
	)
	oauthRepo := oauth.NewRepository(pool)
	linker := oauth.NewLinker(oauthRepo, authRepo, logger)
	oauthHandler := oauth.NewHandler(providers, linker, sessions, tenantCache, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())
	router.Use(tenants.Middleware(resolver, logger))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unreachable")
			return
		}
		if err := rdb.Healthy(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "redis unreachable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	// Auth (public, rate limited)
	authGroup := router.Group("/auth")
	authGroup.Use(ratelimit.Middleware(authLimiter, "auth", logger))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/magic-link", magicHandler.Request)
		authGroup.POST("/magic-link/verify", magicHandler.Verify)
		authGroup.GET("/oauth/:provider/url", oauthHandler.URL)
		authGroup.GET("/oauth/:provider/callback", oauthHandler.Callback)
	}

	// Protected API
	api := router.Group("")
	api.Use(middleware.Auth(sessions))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/auth/logout", authHandler.Logout)
		api.POST("/auth/logout-all", authHandler.LogoutAll)
		api.POST("/auth/change-password", authHandler.ChangePassword)
		api.DELETE("/auth/oauth/:provider", oauthHandler.Unlink)

		api.GET("/users", middleware.RequirePermission(permissions.UsersRead), userHandler.List)
		api.PATCH("/users/:id/role", middleware.RequirePermission(permissions.UsersManage), userHandler.UpdateRole)

		api.GET("/tenant", tenantHandler.Get)
		api.GET("/tenant/logo", tenantHandler.DownloadLogo)
		api.PATCH("/tenant", middleware.RequirePermission(permissions.TenantManage), tenantHandler.Update)
		api.POST("/tenant/logo", middleware.RequirePermission(permissions.TenantManage), tenantHandler.UploadLogo)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
