package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/remote"
	"github.com/noah-isme/course-gateway/internal/repository"
	"github.com/noah-isme/course-gateway/internal/service"
	"github.com/noah-isme/course-gateway/pkg/cache"
	"github.com/noah-isme/course-gateway/pkg/config"
	"github.com/noah-isme/course-gateway/pkg/database"
	"github.com/noah-isme/course-gateway/pkg/logger"
)

// @title Course Gateway API
// @version 0.1.0
// @description Session gateway between the marketplace UI and the marketplace API: moderation, visibility and optimistic updates.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, cfg.Cache.Namespace, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	auditSvc := service.NewAuditService(nil, logr, false)
	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		auditRepo := repository.NewAuditRepository(db)
		if err := auditRepo.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare audit schema", zap.Error(err))
		}
		auditSvc = service.NewAuditService(auditRepo, logr, true)
	}

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.RequestTimeout,
		remote.WithLogger(logr),
		remote.WithObserver(metrics.ObserveRemoteCall),
	)

	notifications := service.NewNotificationService(cfg.Notifications, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	sessions := service.NewSessionManager(service.SessionDeps{
		Remote:          client,
		Cache:           cacheSvc,
		Audit:           auditSvc,
		Notifications:   notifications,
		Metrics:         metrics,
		Logger:          logr,
		MutationTimeout: cfg.Remote.MutationTimeout,
	}, cfg.Sessions.IdleTimeout)
	defer sessions.Shutdown()
	go sessions.Run(ctx, time.Minute)

	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	router := newRouter(cfg, logr, routerDeps{
		auth:          auth,
		sessions:      sessions,
		notifications: notifications,
		audit:         auditSvc,
		metrics:       metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Mutations may legitimately wait for the marketplace up to the mutation timeout.
		WriteTimeout: cfg.Remote.MutationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "remote", cfg.Remote.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Remote.MutationTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
