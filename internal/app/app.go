// Package app wires the service together.
package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gridpulse/internal/config"
	"gridpulse/internal/db"
	httpserver "gridpulse/internal/http"
	"gridpulse/internal/http/handlers"
	"gridpulse/internal/ingest"
	"gridpulse/internal/maintenance"
	"gridpulse/internal/redisx"
	"gridpulse/internal/repository"
	"gridpulse/internal/service"
	"gridpulse/migrations"
)

// App owns every long-lived component.
type App struct {
	server    *httpserver.Server
	pipeline  *ingest.Pipeline
	scheduler *maintenance.Scheduler
	pool      *pgxpool.Pool
	redis     *redis.Client
	logger    *zap.Logger
}

// New builds the application: database pool, schema, buffers, repositories,
// services, HTTP surface, and maintenance jobs.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.Database.DSN, db.Options{
		PoolMin:          cfg.Database.PoolMin,
		PoolMax:          cfg.Database.PoolMax,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	partitions := maintenance.NewPartitionManager(pool,
		cfg.Maintenance.RetentionMonths, cfg.Maintenance.PartitionAheadMonths, logger)
	if err := partitions.EnsureUpcoming(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	var redisClient *redis.Client
	var deduper *ingest.Deduper
	if cfg.Redis.Addr != "" {
		redisClient, err = redisx.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			pool.Close()
			return nil, err
		}
		deduper = ingest.NewDeduper(redisClient, cfg.Redis.IdempotencyTTL)
	}

	var limiter *ingest.DeviceLimiter
	if cfg.Ingest.DeviceRate > 0 {
		limiter = ingest.NewDeviceLimiter(cfg.Ingest.DeviceRate, cfg.Ingest.DeviceBurst)
	}

	vehicleRepo := repository.NewVehicleRepository(pool)
	meterRepo := repository.NewMeterRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)

	pipeline := ingest.NewPipeline(
		vehicleRepo.IngestBatch,
		meterRepo.IngestBatch,
		cfg.Buffer.FlushSize,
		cfg.Buffer.FlushInterval,
		logger,
	)

	ingestService := ingest.NewService(pipeline, limiter, deduper, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, linkRepo, logger)

	routes := httpserver.Routes{
		Ingest:       handlers.NewIngestHandler(ingestService, logger),
		BufferStatus: handlers.NewBufferStatusHandler(pipeline),
		Analytics:    handlers.NewAnalyticsHandler(analyticsService, logger),
		Health:       handlers.NewHealthHandler(),
	}
	router := httpserver.NewRouter(routes, cfg.Auth.JWTSecret)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	scheduler := maintenance.NewScheduler(
		partitions,
		maintenance.NewRollupJob(pool, logger),
		cfg.Maintenance.RollupInterval,
		cfg.Maintenance.SummaryRefreshInterval,
		logger,
	)

	return &App{
		server:    server,
		pipeline:  pipeline,
		scheduler: scheduler,
		pool:      pool,
		redis:     redisClient,
		logger:    logger,
	}, nil
}

// Run serves until the context is cancelled or a component fails. The
// pipeline drains before Run returns so shutdown loses as little as
// possible.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() { errCh <- a.server.Run(ctx) }()
	go func() { errCh <- a.pipeline.Run(ctx) }()
	go func() { errCh <- a.scheduler.Run(ctx) }()

	var first error
	for i := 0; i < 3; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
		}
		cancel()
	}
	return first
}

// Close releases connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
