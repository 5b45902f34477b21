package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/ratelimit"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSigningSecret) {
			logger.Fatal("AUTH_JWT_SECRET is not a usable signing key", zap.Error(err))
		}
		logger.Fatal("failed to build token codec", zap.Error(err))
	}

	publicPaths, err := auth.NewPathMatcher(cfg.Auth.PublicPaths)
	if err != nil {
		logger.Fatal("invalid AUTH_PUBLIC_PATHS", zap.Error(err))
	}
	logger.Info("auth configured",
		zap.Duration("access_ttl", tokens.AccessTTL()),
		zap.Duration("refresh_ttl", tokens.RefreshTTL()),
		zap.Strings("public_paths", publicPaths.Patterns()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger.Named("postgres"))
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger.Named("migrations")); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger.Named("audit"))

	userRepo := repository.NewUserRepository(pg.PoolHandle(), auth.CurrentAuditor)
	credentials := auth.NewBcrypt(cfg.Auth.BcryptCost)

	authService, err := service.NewAuthService(service.AuthDependencies{
		Users:               userRepo,
		Tokens:              tokens,
		Credentials:         credentials,
		Limiter:             ratelimit.NewAttemptLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginAttemptWindow, ""),
		Events:              dispatcher,
		Recorder:            metrics,
		Logger:              logger.Named("auth"),
		RotateRefreshTokens: cfg.Auth.RotateRefreshTokens,
	})
	if err != nil {
		logger.Fatal("failed to build auth service", zap.Error(err))
	}
	userService := service.NewUserService(userRepo, credentials, dispatcher, logger.Named("users"))

	authenticator := auth.NewAuthenticator(authService.Tokens(), authService.Resolver(), publicPaths, logger.Named("authenticator"), metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger.Named("http"), metrics, cfg.App.RequestTimeout, httptransport.SubjectOf)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUsersHandler(userService),
		Management:    handlers.NewManagementHandler(),
		Authenticator: authenticator,
		Gatherer:      registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
