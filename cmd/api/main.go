package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/access"
	httptransport "github.com/spec-kit/constituent-access/internal/api/http"
	"github.com/spec-kit/constituent-access/internal/api/http/handlers"
	"github.com/spec-kit/constituent-access/internal/auth"
	"github.com/spec-kit/constituent-access/internal/config"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/persistence"
	"github.com/spec-kit/constituent-access/internal/persistence/memory"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/repository"
	"github.com/spec-kit/constituent-access/internal/service"
	"github.com/spec-kit/constituent-access/internal/store"
	"github.com/spec-kit/constituent-access/internal/worker"
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

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var docs store.DocumentStore
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		docs = persistence.NewDocumentStore(pool)
	} else {
		logger.Warn("using in-memory document store; data is not persisted")
		docs = memory.New()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()

	settingsRepo := repository.NewSettingsRepository(docs)
	profileRepo := repository.NewProfileRepository(docs)
	cache := policy.NewCache(redis.Client, cfg.Policy.CachePrefix, cfg.Policy.CacheTTL())
	policies := policy.NewCachedSource(settingsRepo, cache, logger)

	deps := store.Deps{
		Store:      docs,
		Evaluator:  access.NewEvaluator(nil),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Timeout:    cfg.Store.OperationTimeout(),
	}
	users := store.NewGateway(deps, func() *domain.UserProfile { return &domain.UserProfile{} })
	settings := store.NewGateway(deps, func() *domain.OfficeSettings { return &domain.OfficeSettings{} })
	communications := store.NewGateway(deps, func() *domain.Communication { return &domain.Communication{} })
	groups := store.NewGateway(deps, func() *domain.ConstituentGroup { return &domain.ConstituentGroup{} })
	analytics := store.NewGateway(deps, func() *domain.Analytics { return &domain.Analytics{} })

	policyService := policy.NewService(policy.ServiceDeps{
		Settings:    settings,
		Users:       users,
		Invalidator: policies,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	communicationService := service.NewCommunicationService(service.CommunicationDependencies{
		Communications: communications,
		Policies:       policies,
		Logger:         logger,
	})
	staffService := service.NewStaffService(service.StaffDependencies{
		Users:         users,
		Policies:      policies,
		PolicyService: policyService,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	groupService := service.NewGroupService(groups)
	analyticsService := service.NewAnalyticsService(analytics)
	settingsService := service.NewSettingsService(settings, policyService)

	auditRepo := repository.NewAuditRepository(redis.Client, cfg.Audit.KeyPrefix, cfg.Audit.MaxEntries)
	auditService := service.NewAuditService(dispatcher, auditRepo, logger)
	worker.StartAuditWorker(auditService)

	resolver := auth.NewResolver(auth.ResolverDeps{
		Profiles: profileRepo,
		Policies: policies,
		Logger:   logger,
		Metrics:  metrics,
	})
	authMiddleware := auth.NewMiddleware(auth.NewTokenVerifier(cfg.Identity), resolver)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Session:        handlers.NewSessionHandler(auditService),
		Communications: handlers.NewCommunicationsHandler(communicationService),
		Groups:         handlers.NewGroupsHandler(groupService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Staff:          handlers.NewStaffHandler(staffService),
		AuthMiddleware: authMiddleware,
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
