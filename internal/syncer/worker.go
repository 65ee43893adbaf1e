package syncer

import (
	"context"
	"log/slog"
	"time"
)

// Worker resyncs stale libraries in the background so dashboard loads
// rarely pay the upstream round trip.
type Worker struct {
	store     Store
	games     *GameSyncer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(logger *slog.Logger, store Store, games *GameSyncer, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if batchSize < 1 {
		batchSize = 25
	}
	return &Worker{
		store:     store,
		games:     games,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run blocks until ctx is cancelled. A batch runs immediately, then once
// per interval.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runBatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runBatch(ctx)
		}
	}
}

func (w *Worker) runBatch(ctx context.Context) {
	cutoff := time.Now().Add(-GamesTTL)
	ids, err := w.store.StaleUsers(ctx, cutoff, w.batchSize)
	if err != nil {
		w.logger.Warn("stale_users_query_failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	w.logger.Info("resync_batch_started", "count", len(ids))
	synced := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := w.games.Sync(ctx, id, GamesOptions{}); err != nil {
			w.logger.Warn("resync_failed", "steam_id", id, "error", err)
			continue
		}
		synced++

		// pace resyncs so a batch never bursts the upstream limit
		time.Sleep(1 * time.Second)
	}
	w.logger.Info("resync_batch_completed", "synced", synced, "total", len(ids))
}
