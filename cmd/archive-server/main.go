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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/handler"
	"github.com/noah-isme/community-archive/internal/repository"
	"github.com/noah-isme/community-archive/internal/service"
	"github.com/noah-isme/community-archive/pkg/cache"
	"github.com/noah-isme/community-archive/pkg/config"
	"github.com/noah-isme/community-archive/pkg/database"
	"github.com/noah-isme/community-archive/pkg/jobs"
	"github.com/noah-isme/community-archive/pkg/logger"
	"github.com/noah-isme/community-archive/pkg/storage"
)

// @title Community Archive API
// @version 1.0.0
// @description Blob and record store behind the community media archive.
// @BasePath /api/v1
// @schemes http https

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(db, logr); err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	readiness := map[string]handler.Pinger{"database": db}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(client, logr)
		readiness["redis"] = handler.PingFunc(redisPing(client))
	} else {
		cacheRepo = repository.NewMemoryCacheRepository(cfg.QueryCache.LocalSize, cfg.QueryCache.TTL)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.QueryCache.TTL, logr, cfg.QueryCache.Enabled)

	backend, err := newBlobBackend(ctx, cfg)
	if err != nil {
		return err
	}

	materials := repository.NewMaterialRepository(db)
	records := service.NewRecordService(materials, repository.NewFlagReportRepository(db), cacheSvc, metrics, logr)
	blobs := service.NewBlobService(backend, cfg.PublicBaseURL, metrics, logr)

	var exports *service.CatalogExportService
	if cfg.Exports.Enabled {
		var queue *jobs.Queue
		exports, queue, err = newExports(ctx, cfg, materials, repository.NewExportJobRepository(db), metrics, logr)
		if err != nil {
			return err
		}
		defer queue.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, routeHandlers{
		records:  handler.NewRecordHandler(records),
		blobs:    handler.NewBlobHandler(blobs, cfg.Blobs.MaxBodyBytes),
		exports:  newExportHandler(exports),
		taxonomy: handler.NewTaxonomyHandler(),
		metrics:  handler.NewMetricsHandler(metrics, readiness),
	}, metrics)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "blobs", cfg.Blobs.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBlobBackend(ctx context.Context, cfg *config.Config) (service.BlobBackend, error) {
	switch cfg.Blobs.Backend {
	case config.BlobBackendS3:
		return storage.NewS3Storage(ctx, cfg.S3)
	case config.BlobBackendLocal, "":
		return storage.NewLocalStorage(cfg.Blobs.StorageDir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blobs.Backend)
	}
}

func newExports(ctx context.Context, cfg *config.Config, materials *repository.MaterialRepository, repo *repository.ExportJobRepository, metrics *service.MetricsService, logr *zap.Logger) (*service.CatalogExportService, *jobs.Queue, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(materials, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	worker := service.NewExportWorker(repo, exporter, logr)
	var exports *service.CatalogExportService
	queue := jobs.NewQueue("catalog-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: 2,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnOutcome:  metrics.RecordJobOutcome,
		OnFailure: func(ctx context.Context, job jobs.Job, err error) {
			exports.HandleFailure(ctx, job, err)
		},
	})
	exports = service.NewCatalogExportService(repo, queue, exporter, logr, service.CatalogExportConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	queue.Start(ctx)
	exports.RecoverPendingJobs(ctx)
	exports.StartCleanup(ctx)
	return exports, queue, nil
}

func newExportHandler(exports *service.CatalogExportService) *handler.ExportHandler {
	if exports == nil {
		return handler.NewExportHandler(nil)
	}
	return handler.NewExportHandler(exports)
}

func redisPing(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
