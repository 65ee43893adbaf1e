package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"steam-shelf/internal/db"
)

// ArtworkMirrorJob copies game cover art into our own bucket so the
// dashboard does not hotlink the Steam CDN. Strictly best-effort.
type ArtworkMirrorJob struct {
	db      *db.DB
	storage StorageClient
	logger  *slog.Logger
}

func NewArtworkMirrorJob(logger *slog.Logger, dbConn *db.DB, storageClient StorageClient) *ArtworkMirrorJob {
	return &ArtworkMirrorJob{
		db:      dbConn,
		storage: storageClient,
		logger:  logger,
	}
}

func (j *ArtworkMirrorJob) Start() {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	// Run immediately on start
	go j.runCycle(context.Background())

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		j.runCycle(ctx)
		cancel()
	}
}

func (j *ArtworkMirrorJob) runCycle(ctx context.Context) {
	j.logger.Info("artwork_mirror_cycle_started")

	// enqueue covers seen in games but not yet tracked
	_, err := j.db.Pool.Exec(ctx,
		`INSERT INTO artwork_mirror (app_id, source_url)
		 SELECT DISTINCT g.app_id, g.cover_url
		 FROM games g
		 WHERE g.cover_url <> ''
		 ON CONFLICT (app_id) DO NOTHING`,
	)
	if err != nil {
		j.logger.Warn("artwork_enqueue_failed", "error", err)
	}

	rows, err := j.db.Pool.Query(ctx,
		`SELECT app_id, source_url
		 FROM artwork_mirror
		 WHERE mirror_url IS NULL
		 LIMIT 100`,
	)
	if err != nil {
		j.logger.Warn("artwork_fetch_failed", "error", err)
		return
	}
	defer rows.Close()

	type pending struct {
		appID     int64
		sourceURL string
	}
	var work []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.appID, &p.sourceURL); err != nil {
			continue
		}
		work = append(work, p)
	}
	rows.Close()

	count := 0
	for _, p := range work {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s3Client, ok := j.storage.(*S3Client)
		if !ok {
			// simulator configured: nothing to actually mirror
			return
		}

		objectKey := fmt.Sprintf("covers/%d.png", p.appID)
		url, err := s3Client.MirrorImage(objectKey, p.sourceURL)
		if err != nil {
			j.logger.Warn("artwork_mirror_failed", "app_id", p.appID, "error", err)
			continue
		}

		_, err = j.db.Pool.Exec(ctx,
			`UPDATE artwork_mirror SET mirror_url = $1, updated_at = NOW() WHERE app_id = $2`,
			url, p.appID,
		)
		if err != nil {
			j.logger.Warn("artwork_url_update_failed", "app_id", p.appID, "error", err)
			continue
		}

		count++
		j.logger.Info("artwork_mirrored", "app_id", p.appID)

		// pace uploads: one per second is plenty for a background job
		time.Sleep(1 * time.Second)
	}

	j.logger.Info("artwork_mirror_cycle_completed", "processed", count)
}
