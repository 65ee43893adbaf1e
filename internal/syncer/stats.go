package syncer

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	"steam-shelf/internal/db"
	"steam-shelf/internal/models"
)

// StatsSyncer recomputes a user's aggregate statistics when they go stale.
// Staleness has two triggers: the 24-hour TTL, and the underlying game
// data having been resynced after the last calculation.
type StatsSyncer struct {
	store        Store
	games        *GameSyncer
	achievements *AchievementSyncer
	logger       *slog.Logger
	notifier     Notifier
	fanoutLimit  int
	now          func() time.Time
}

func NewStatsSyncer(logger *slog.Logger, store Store, games *GameSyncer, achievements *AchievementSyncer, notifier Notifier, fanoutLimit int) *StatsSyncer {
	if fanoutLimit < 1 {
		fanoutLimit = 10
	}
	return &StatsSyncer{
		store:        store,
		games:        games,
		achievements: achievements,
		logger:       logger,
		notifier:     notifier,
		fanoutLimit:  fanoutLimit,
		now:          time.Now,
	}
}

func (s *StatsSyncer) WithClock(now func() time.Time) *StatsSyncer {
	s.now = now
	return s
}

func (s *StatsSyncer) Sync(ctx context.Context, steamID string, refresh bool) (*models.UserStatistics, error) {
	cached, err := s.store.GetStatistics(ctx, steamID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	var lastSync *time.Time
	if user, err := s.store.GetUser(ctx, steamID); err == nil {
		lastSync = user.LastSyncAt
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	if !refresh && cached != nil && !s.dataChanged(cached, lastSync) &&
		!IsStale(&cached.CalculatedAt, StatisticsTTL, now) {
		return cached, nil
	}

	s.logger.Info("stats_sync_started", "steam_id", steamID, "refresh", refresh)

	games, err := s.games.Sync(ctx, steamID, GamesOptions{})
	if err != nil {
		return nil, err
	}

	byApp := s.fetchAchievements(ctx, steamID, games)

	st := Aggregate(steamID, games, byApp)
	st.CalculatedAt = now

	// Persist even the all-zero record for an empty library: it marks
	// "definitively no data" and stops every request from recomputing.
	if err := s.store.SaveStatistics(ctx, &st); err != nil {
		return nil, err
	}

	s.logger.Info("stats_sync_completed",
		"steam_id", steamID,
		"total_games", st.TotalGames,
		"avg_completion", st.AverageCompletion,
	)
	notify(s.notifier, steamID, "stats_sync_completed", map[string]interface{}{
		"total_games":    st.TotalGames,
		"avg_completion": st.AverageCompletion,
	})
	return &st, nil
}

// dataChanged reports whether the game library was resynced after the
// statistics were last calculated.
func (s *StatsSyncer) dataChanged(cached *models.UserStatistics, lastSync *time.Time) bool {
	return lastSync != nil && lastSync.After(cached.CalculatedAt)
}

// fetchAchievements fans out per-game achievement syncs, capped by
// fanoutLimit so a large library cannot flood the upstream rate limit. A
// failed game is omitted from the mapping, never aborting the aggregation.
func (s *StatsSyncer) fetchAchievements(ctx context.Context, steamID string, games []models.Game) map[int64][]models.UserAchievement {
	byApp := make(map[int64][]models.UserAchievement, len(games))

	sem := make(chan struct{}, s.fanoutLimit)
	var wg gosync.WaitGroup
	var mu gosync.Mutex

	for _, g := range games {
		wg.Add(1)
		sem <- struct{}{}
		go func(appID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.achievements.Sync(ctx, steamID, appID, false)
			if err != nil {
				s.logger.Warn("stats_achievement_fetch_failed", "steam_id", steamID, "app_id", appID, "error", err)
				return
			}
			if len(res.Achievements) == 0 {
				return
			}
			mu.Lock()
			byApp[appID] = res.Achievements
			mu.Unlock()
		}(g.AppID)
	}
	wg.Wait()

	return byApp
}
