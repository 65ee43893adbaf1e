package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"steam-shelf/internal/config"
	"steam-shelf/internal/db"
	"steam-shelf/internal/logging"
	"steam-shelf/internal/redis"
	"steam-shelf/internal/steam"
	"steam-shelf/internal/storage"
	"steam-shelf/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_worker", "service", "steam-shelf-worker", "interval", cfg.WorkerInterval.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL (with retry)
	var dbConn *db.DB
	for i := 0; i < 5; i++ {
		dbConn, err = db.New(ctx, cfg.DBDSN)
		if err == nil {
			break
		}
		logger.Warn("db_connect_retry", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := dbConn.Migrate(ctx); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient, err := redis.New(cfg.RedisDSN)
	if err != nil {
		logger.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	steamClient := steam.NewClient(logger, cfg.SteamAPIKey)
	store := db.NewStore(dbConn, logger)
	games := syncer.NewGameSyncer(logger, store, steamClient, nil, cfg.SyncFanoutLimit)

	worker := syncer.NewWorker(logger, store, games, cfg.WorkerInterval, cfg.WorkerBatchSize)
	go worker.Run(ctx)

	// Artwork mirroring rides along with the worker process
	var storageClient storage.StorageClient
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
			Region:    cfg.S3Region,
		})
		if err != nil {
			logger.Warn("s3_init_failed", "error", err)
		} else {
			storageClient = s3Client
			logger.Info("using_s3_storage", "bucket", cfg.S3Bucket)
		}
	}
	if storageClient == nil {
		storageClient = storage.NewSimulator(cfg.S3Bucket, cfg.S3Endpoint)
		logger.Info("using_storage_simulator")
	}
	artworkJob := storage.NewArtworkMirrorJob(logger, dbConn, storageClient)
	go artworkJob.Start()

	logger.Info("worker_started")

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	cancel()

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis_close_error", "error", err)
	} else {
		logger.Info("redis_closed")
	}

	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("worker_stopped")
}
