package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/vps-service/internal/api/http"
	"github.com/spec-kit/vps-service/internal/api/http/handlers"
	"github.com/spec-kit/vps-service/internal/audit"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/config"
	"github.com/spec-kit/vps-service/internal/governor"
	"github.com/spec-kit/vps-service/internal/observability"
	"github.com/spec-kit/vps-service/internal/persistence"
	"github.com/spec-kit/vps-service/internal/repository"
	"github.com/spec-kit/vps-service/internal/runtime"
	"github.com/spec-kit/vps-service/internal/service"
	"github.com/spec-kit/vps-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileStore, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Fatal("failed to open record store", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	var eventRepo repository.LifecycleEventRepository
	if pg.Enabled() {
		eventRepo = repository.NewLifecycleEventRepository(pg.PoolHandle())
	}
	auditRecorder := audit.NewRecorder(eventRepo, logger)
	sessionRepo := repository.NewShellSessionRepository(redis.Client)

	adapter := runtime.NewLXC(cfg.Runtime, runtime.NewExecRunner())

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		Store:    fileStore,
		Runtime:  adapter,
		Audit:    auditRecorder,
		Sessions: sessionRepo,
		Logger:   logger,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	userService := service.NewUserService(service.UserDependencies{
		Store:     fileStore,
		Lifecycle: lifecycleService,
		Tokens:    tokens,
		Auth:      cfg.Auth,
		Logger:    logger,
	})
	orderService := service.NewOrderService(service.OrderDependencies{
		Store:     fileStore,
		Lifecycle: lifecycleService,
		Logger:    logger,
	})
	settingsService := service.NewSettingsService(fileStore)
	shellService := service.NewShellService(service.ShellDependencies{
		Store:   fileStore,
		Runtime: adapter,
		Cache:   sessionRepo,
		Shell:   cfg.Shell,
		Logger:  logger,
	})

	if err := userService.EnsureAdmin(ctx); err != nil {
		logger.Fatal("failed to seed admin account", zap.Error(err))
	}

	hostGovernor := governor.New(governor.Dependencies{
		Lifecycle: lifecycleService,
		Runtime:   adapter,
		Sampler:   governor.NewHostCPUSampler(),
		Governor:  cfg.Governor,
		Logger:    logger,
		Metrics:   metrics,
	})
	go hostGovernor.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(tokens, fileStore)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(fileStore, pg, cfg.App.Version),
		Users:          handlers.NewUsersHandler(userService),
		VPS:            handlers.NewVPSHandler(lifecycleService, shellService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		AdminUsers:     handlers.NewAdminUsersHandler(userService),
		AdminVPS:       handlers.NewAdminVPSHandler(lifecycleService),
		AdminOrders:    handlers.NewAdminOrdersHandler(orderService),
		Audit:          handlers.NewAuditHandler(eventRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
