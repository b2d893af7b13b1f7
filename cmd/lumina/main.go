package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/lumina-hr/lumina-backoffice/internal/app"
	"github.com/lumina-hr/lumina-backoffice/internal/authz"
	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/identity"
	"github.com/lumina-hr/lumina-backoffice/internal/platform/db"
	"github.com/lumina-hr/lumina-backoffice/internal/registry"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo, redisClient, cfg.TokenTTL)
	identityHandler := identity.NewHandler(logger, identityService)

	registryRepo := registry.NewRepository(pool)
	registryService := registry.NewService(registryRepo, auditLogger, logger)
	registryHandler := registry.NewHandler(logger, registryService)

	grantsRepo := grants.NewRepository(pool)
	grantsService := grants.NewService(grantsRepo, identityService, auditLogger, logger)
	grantsHandler := grants.NewHandler(logger, grantsService)

	authzService := authz.NewService(registryService, grantsService)
	authzHandler := authz.NewHandler(logger, authzService)
	authzMiddleware := authz.Middleware{Service: authzService, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		IdentityService: identityService,
		IdentityHandler: identityHandler,
		RegistryHandler: registryHandler,
		GrantsHandler:   grantsHandler,
		AuthzHandler:    authzHandler,
		AuthzMiddleware: authzMiddleware,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped cleanly")
}
