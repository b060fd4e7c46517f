package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-router/internal/cache"
	"github.com/kursadbilgin/notify-router/internal/config"
	"github.com/kursadbilgin/notify-router/internal/handler"
	"github.com/kursadbilgin/notify-router/internal/infra/postgresql"
	"github.com/kursadbilgin/notify-router/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/notify-router/internal/infra/redis"
	"github.com/kursadbilgin/notify-router/internal/observability"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"github.com/kursadbilgin/notify-router/internal/service"
	"github.com/kursadbilgin/notify-router/internal/strategy"
	"github.com/kursadbilgin/notify-router/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel, observability.FileSink{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAgeDays: cfg.LogFileMaxAgeDays,
	})
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := postgresql.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxIdleConns

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, pool, logger)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	providerRepo := repository.NewGormProviderRepo(db)
	senderRepo := repository.NewGormSenderRepo(db)
	numberRepo := repository.NewGormInboundNumberRepo(db)
	transactor := repository.NewGormTransactor(db)

	providers, err := service.NewProviderService(providerRepo, logger.Named("providers"), metrics)
	if err != nil {
		logger.Fatal("provider service init failed", zap.Error(err))
	}
	if err := providers.InitApp(
		strategy.Label(cfg.EmailProviderStrategy),
		strategy.Label(cfg.SMSProviderStrategy),
	); err != nil {
		logger.Fatal("provider strategy configuration failed", zap.Error(err))
	}
	if err := providers.ValidateStrategies(ctx); err != nil {
		logger.Fatal("provider strategy validation failed", zap.Error(err))
	}

	store, err := newSenderCache(cfg, rdb)
	if err != nil {
		logger.Fatal("sender cache init failed", zap.Error(err))
	}

	reader, err := service.NewSenderReader(senderRepo, store, logger.Named("sender-cache"), metrics)
	if err != nil {
		logger.Fatal("sender reader init failed", zap.Error(err))
	}
	allocator, err := service.NewSenderAllocator(transactor, senderRepo, numberRepo, providerRepo, logger.Named("senders"), metrics)
	if err != nil {
		logger.Fatal("sender allocator init failed", zap.Error(err))
	}
	validator, err := service.NewProviderValidator(providerRepo)
	if err != nil {
		logger.Fatal("provider validator init failed", zap.Error(err))
	}

	limiter, err := infraredis.NewWindowLimiter(rdb)
	if err != nil {
		logger.Fatal("sender rate limiter init failed", zap.Error(err))
	}
	throttle, err := service.NewSenderThrottle(cfg.SenderRateLimitEnabled, reader, limiter, logger.Named("throttle"), metrics)
	if err != nil {
		logger.Fatal("sender throttle init failed", zap.Error(err))
	}

	engine := resolver{
		Providers: providers,
		Validator: validator,
		Allocator: allocator,
		Senders:   reader,
		Throttle:  throttle,
	}

	app := fiber.New(fiber.Config{
		AppName:               "notify-router",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	handler.RegisterHealthRoutes(app, handler.HealthDeps{
		DB:         sqlDB,
		Redis:      rdb,
		Strategies: engine.Providers,
	})
	handler.RegisterMetricsRoute(app, metrics.Handler())

	logger.Info("notify-router resolver ready",
		zap.Int("port", cfg.OpsPort),
		zap.String("emailStrategy", cfg.EmailProviderStrategy),
		zap.String("smsStrategy", cfg.SMSProviderStrategy),
		zap.String("senderCache", cfg.SenderCacheBackend),
		zap.Duration("senderCacheTtl", cfg.SenderCacheTTL),
		zap.Bool("senderThrottle", cfg.SenderRateLimitEnabled),
		zap.Bool("allocatorReady", engine.Allocator != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.OpsPort)); err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("resolver stopped with error", zap.Error(err))
		return
	}
	logger.Info("resolver stopped")
}

// resolver groups the services that callers in this process route through.
type resolver struct {
	Providers *service.ProviderService
	Validator *service.ProviderValidator
	Allocator *service.SenderAllocator
	Senders   *service.SenderReader
	Throttle  *service.SenderThrottle
}

func newSenderCache(cfg *config.Config, rdb *redis.Client) (cache.Store, error) {
	switch cfg.SenderCacheBackend {
	case config.CacheBackendRedis:
		return cache.NewRedis(rdb, cfg.SenderCacheTTL)
	case config.CacheBackendNone:
		return cache.Nop{}, nil
	default:
		return cache.NewMemory(cfg.SenderCacheTTL, cfg.SenderCacheMaxEntries), nil
	}
}
