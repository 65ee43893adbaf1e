package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"steam-shelf/internal/api"
	"steam-shelf/internal/auth"
	"steam-shelf/internal/authz"
	"steam-shelf/internal/cache"
	"steam-shelf/internal/config"
	"steam-shelf/internal/db"
	"steam-shelf/internal/logging"
	"steam-shelf/internal/redis"
	"steam-shelf/internal/steam"
	"steam-shelf/internal/storage"
	"steam-shelf/internal/syncer"
	"steam-shelf/internal/ws"
)

// Combined entrypoint: API server plus the background jobs, for single-node
// deployments. cmd/api and cmd/worker split the same pieces across two
// processes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_service", "service", "steam-shelf", "http_addr", cfg.HTTPAddr,
		"steam_api_key", logging.MaskKey(cfg.SteamAPIKey))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := dbConn.Migrate(ctx); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.RedisDSN)
	if err != nil {
		logger.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	steamClient := steam.NewClient(logger, cfg.SteamAPIKey)
	store := db.NewStore(dbConn, logger)
	hub := ws.NewHub(logger)

	gate := authz.NewGate(logger, steamClient, cache.NewRedisCache(redisClient, "shelf"))
	games := syncer.NewGameSyncer(logger, store, steamClient, hub, cfg.SyncFanoutLimit)
	achievements := syncer.NewAchievementSyncer(logger, store, steamClient, hub)
	stats := syncer.NewStatsSyncer(logger, store, games, achievements, hub, cfg.SyncFanoutLimit)
	sessions := auth.NewSessions(redisClient, cfg.SessionKey)

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

	worker := syncer.NewWorker(logger, store, games, cfg.WorkerInterval, cfg.WorkerBatchSize)
	go worker.Run(ctx)

	srv := api.NewServer(logger, cfg, api.Deps{
		Store:        store,
		DB:           dbConn,
		Redis:        redisClient,
		Sessions:     sessions,
		Verifier:     auth.NewSteamVerifier(),
		Gate:         gate,
		Games:        games,
		Achievements: achievements,
		Stats:        stats,
		Summaries:    steamClient,
		Hub:          hub,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("service_ready", "addr", cfg.HTTPAddr)

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis_close_error", "error", err)
	} else {
		logger.Info("redis_closed")
	}

	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("service_stopped")
}
