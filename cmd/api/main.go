package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/wiki-moderation/internal/api/http"
	"github.com/spec-kit/wiki-moderation/internal/api/http/handlers"
	"github.com/spec-kit/wiki-moderation/internal/auth"
	"github.com/spec-kit/wiki-moderation/internal/config"
	"github.com/spec-kit/wiki-moderation/internal/events"
	"github.com/spec-kit/wiki-moderation/internal/observability"
	"github.com/spec-kit/wiki-moderation/internal/persistence"
	"github.com/spec-kit/wiki-moderation/internal/repository"
	"github.com/spec-kit/wiki-moderation/internal/repository/sqlite"
	"github.com/spec-kit/wiki-moderation/internal/service"
	"github.com/spec-kit/wiki-moderation/internal/worker"
)

// stores is the repository set of the selected storage driver.
type stores struct {
	requests  repository.ChangeRequestRepository
	entities  repository.EntityRepository
	revisions repository.RevisionRepository
	health    handlers.Dependency
	close     func()
}

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

	shutdownTracing, err := observability.InitTracing(ctx, cfg.App, cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	metrics := observability.NewMetrics()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer st.close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	requestRepo := st.requests
	healthDeps := []handlers.Dependency{st.health}
	dispatcher := events.NewInMemoryDispatcher(logger)
	if redis.Enabled() {
		requestRepo = repository.NewCachedChangeRequestRepository(st.requests, redis.Client, cfg.Redis.CacheTTL(), logger)
		worker.StartEventRelay(dispatcher, events.NewRedisPublisher(redis.Client, cfg.Redis.EventsChannel).Handle)
		healthDeps = append(healthDeps, handlers.Dependency{Name: "redis", Pinger: redis})
	}

	moderation := service.NewModerationService(service.ModerationDependencies{
		ChangeRequestRepo: requestRepo,
		EntityRepo:        st.entities,
		RevisionRepo:      st.revisions,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Fields:            cfg.Moderation,
		Logger:            logger,
	})
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartModerationWorker(moderation)
	worker.StartNotificationWorker(notifications)

	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService, err := service.NewAuthService(cfg.Auth, tokenMgr)
	if err != nil {
		logger.Fatal("failed to init auth", zap.Error(err))
	}
	if authService.Accounts() == 0 {
		logger.Warn("AUTH_ACCOUNTS is empty; no one can obtain a token")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps...),
		Auth:           handlers.NewAuthHandler(authService),
		ChangeRequests: handlers.NewChangeRequestsHandler(moderation),
		Entities:       handlers.NewEntitiesHandler(moderation),
		AuthMiddleware: auth.NewAuthMiddleware(tokenMgr),
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &stores{
			requests:  repository.NewChangeRequestRepository(pg.Pool),
			entities:  repository.NewEntityRepository(pg.Pool),
			revisions: repository.NewRevisionRepository(pg.Pool),
			health:    handlers.Dependency{Name: "postgres", Pinger: pg},
			close:     pg.Close,
		}, nil
	default:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite store", zap.String("path", cfg.Storage.SQLitePath))
		return &stores{
			requests:  store.ChangeRequests(),
			entities:  store.Entities(),
			revisions: store.Revisions(),
			health:    handlers.Dependency{Name: "sqlite", Pinger: store},
			close:     func() { _ = store.Close() },
		}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
