package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-priority/internal/api/http"
	"github.com/spec-kit/ticket-priority/internal/api/http/handlers"
	"github.com/spec-kit/ticket-priority/internal/cache"
	"github.com/spec-kit/ticket-priority/internal/config"
	"github.com/spec-kit/ticket-priority/internal/events"
	"github.com/spec-kit/ticket-priority/internal/observability"
	"github.com/spec-kit/ticket-priority/internal/persistence"
	"github.com/spec-kit/ticket-priority/internal/pipeline"
	"github.com/spec-kit/ticket-priority/internal/repository"
	"github.com/spec-kit/ticket-priority/internal/scoring"
	"github.com/spec-kit/ticket-priority/internal/selector"
	"github.com/spec-kit/ticket-priority/internal/service"
	"github.com/spec-kit/ticket-priority/internal/worker"
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

	loc, err := cfg.Scoring.Location()
	if err != nil {
		logger.Fatal("invalid time zone", zap.Error(err))
	}

	health := map[string]handlers.Pinger{"postgres": nil, "redis": nil}

	var (
		source          repository.RecordSource
		classifications repository.ClassificationRepository
	)
	switch cfg.Source.Mode {
	case config.SourceCSV:
		csvSource, err := repository.LoadCSVSource(cfg.Source.CSVDir)
		if err != nil {
			logger.Fatal("failed to load csv exports", zap.String("dir", cfg.Source.CSVDir), zap.Error(err))
		}
		logger.Info("serving csv exports",
			zap.String("dir", cfg.Source.CSVDir),
			zap.Int("tickets", len(csvSource.Tickets)),
			zap.Int("actions", len(csvSource.Actions)))
		source = csvSource
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		health["postgres"] = pg

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
			if cfg.Postgres.SourceViews {
				dir := filepath.Join(cfg.Postgres.MigrationsDir, "source")
				if err := persistence.RunMigrations(ctx, pg.PoolHandle(), dir, logger); err != nil {
					logger.Fatal("failed to create source views", zap.Error(err))
				}
			}
		}

		source = repository.NewSourceRepository(pg.PoolHandle(), cfg.Source.RowLimit)
		classifications = repository.NewClassificationRepository(pg.PoolHandle())
	}

	var store cache.Store
	if cfg.Cache.Backend == config.CacheRedis {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		health["redis"] = redis
		store = cache.NewRedisStore(redis.Client, cfg.Redis.KeyPrefix)
	} else {
		store = cache.NewMemoryStore()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	coordinator := cache.NewCoordinator(cache.Settings{
		TTL:          cfg.Cache.TTL(),
		MaxWait:      cfg.Cache.MaxWait(),
		PollInterval: cfg.Cache.PollInterval(),
	}, cache.Dependencies{
		Store:      store,
		Logger:     logger,
		Metrics:    metrics,
		Dispatcher: dispatcher,
	})

	vip := selector.NewNameSet(cfg.Scoring.VIPList)
	reportService := service.NewReportService(service.ReportDependencies{
		Source:          source,
		Classifications: classifications,
		Coordinator:     coordinator,
		Normalizer:      pipeline.NewNormalizer(loc),
		Engine:          scoring.NewEngine(vip),
		VIP:             vip,
		Sensitive:       selector.NewNameSet(cfg.Scoring.SensitiveList),
		Logger:          logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, health),
		Reports:        handlers.NewReportsHandler(reportService),
		Classification: handlers.NewClassificationHandler(reportService),
		Datasets:       handlers.NewDatasetsHandler(reportService, metrics),
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
