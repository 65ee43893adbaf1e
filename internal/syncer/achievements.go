package syncer

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

// AchievementOutcome tells callers how the returned rows were obtained, so
// "this app has no achievements" and "the refresh failed" stay
// distinguishable.
type AchievementOutcome string

const (
	// OutcomeFresh: rows were refreshed from upstream during this call.
	OutcomeFresh AchievementOutcome = "fresh"
	// OutcomeCached: the cache was fresh enough to serve as-is.
	OutcomeCached AchievementOutcome = "cached"
	// OutcomeStaleCache: the refresh failed, previously cached rows served.
	OutcomeStaleCache AchievementOutcome = "stale_cache"
	// OutcomeUnavailable: the refresh failed and no cache exists; the empty
	// list says nothing about whether the app has achievements.
	OutcomeUnavailable AchievementOutcome = "unavailable"
)

type AchievementResult struct {
	Achievements []models.UserAchievement
	Outcome      AchievementOutcome
}

// AchievementSyncer keeps the (user, app) achievement rows consistent with
// upstream under the 1-hour freshness window.
type AchievementSyncer struct {
	store    Store
	upstream Upstream
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time
}

func NewAchievementSyncer(logger *slog.Logger, store Store, upstream Upstream, notifier Notifier) *AchievementSyncer {
	return &AchievementSyncer{
		store:    store,
		upstream: upstream,
		logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *AchievementSyncer) WithClock(now func() time.Time) *AchievementSyncer {
	s.now = now
	return s
}

func (s *AchievementSyncer) Sync(ctx context.Context, steamID string, appID int64, refresh bool) (AchievementResult, error) {
	// An explicit refresh clears the cached rows up front: if the resync
	// then fails we are left with a clean empty cache instead of an
	// ambiguous old+new mix.
	if refresh {
		if err := s.store.ClearUserAchievements(ctx, steamID, appID); err != nil {
			return AchievementResult{}, err
		}
	}

	cached, err := s.store.UserAchievementsForGame(ctx, steamID, appID)
	if err != nil {
		return AchievementResult{}, err
	}
	syncedAt, err := s.store.AchievementSyncedAt(ctx, steamID, appID)
	if err != nil {
		return AchievementResult{}, err
	}

	now := s.now()
	if !refresh && len(cached) > 0 && !IsStale(syncedAt, AchievementsTTL, now) {
		return AchievementResult{Achievements: cached, Outcome: OutcomeCached}, nil
	}

	s.logger.Info("achievements_sync_started", "steam_id", steamID, "app_id", appID, "refresh", refresh)

	src := s.fetchSources(ctx, steamID, appID)

	// Without both the player state and the schema there is nothing sound
	// to merge: fall back to whatever cache survives, else empty.
	if src.playerErr != nil || src.schemaErr != nil {
		s.logger.Warn("achievements_primary_fetch_failed",
			"steam_id", steamID,
			"app_id", appID,
			"player_error", src.playerErr,
			"schema_error", src.schemaErr,
		)
		if len(cached) > 0 {
			return AchievementResult{Achievements: cached, Outcome: OutcomeStaleCache}, nil
		}
		return AchievementResult{Outcome: OutcomeUnavailable}, nil
	}

	defs, rows := MergeAchievements(steamID, appID, src.schema, src.player, src.globalPct, src.legacyDesc)

	if err := s.store.UpsertAchievementDefinitions(ctx, defs); err != nil {
		return AchievementResult{}, err
	}
	if err := s.store.SaveUserAchievements(ctx, steamID, appID, rows, now); err != nil {
		return AchievementResult{}, err
	}

	// Re-read so the response goes through the same shape cached reads use.
	fresh, err := s.store.UserAchievementsForGame(ctx, steamID, appID)
	if err != nil {
		return AchievementResult{}, err
	}

	s.logger.Info("achievements_sync_completed", "steam_id", steamID, "app_id", appID, "count", len(fresh))
	notify(s.notifier, steamID, "achievements_sync_completed", map[string]interface{}{
		"app_id": appID,
		"count":  len(fresh),
	})
	return AchievementResult{Achievements: fresh, Outcome: OutcomeFresh}, nil
}

type achievementSources struct {
	player     []steam.PlayerAchievement
	playerErr  error
	schema     []steam.SchemaAchievement
	schemaErr  error
	globalPct  map[string]float64
	legacyDesc map[string]string
}

// fetchSources issues the four upstream queries concurrently. Each is
// independently allowed to fail; the supplementary two degrade to empty.
func (s *AchievementSyncer) fetchSources(ctx context.Context, steamID string, appID int64) achievementSources {
	var src achievementSources
	var wg gosync.WaitGroup

	wg.Add(4)
	go func() {
		defer wg.Done()
		src.player, src.playerErr = s.upstream.GetPlayerAchievements(ctx, steamID, appID)
	}()
	go func() {
		defer wg.Done()
		src.schema, src.schemaErr = s.upstream.GetSchemaForGame(ctx, appID)
	}()
	go func() {
		defer wg.Done()
		pct, err := s.upstream.GetGlobalAchievementPercentages(ctx, appID)
		if err != nil {
			s.logger.Debug("global_percentages_unavailable", "app_id", appID, "error", err)
			return
		}
		src.globalPct = pct
	}()
	go func() {
		defer wg.Done()
		desc, err := s.upstream.GetLegacyAchievementDescriptions(ctx, steamID, appID)
		if err != nil {
			s.logger.Debug("legacy_descriptions_unavailable", "app_id", appID, "error", err)
			return
		}
		src.legacyDesc = desc
	}()
	wg.Wait()

	return src
}
