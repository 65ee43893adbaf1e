package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"steam-shelf/internal/db"
	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

// GameSyncer keeps a user's cached game set consistent with the Steam Web
// API under the 1-hour freshness window.
type GameSyncer struct {
	store       Store
	upstream    Upstream
	logger      *slog.Logger
	notifier    Notifier
	fanoutLimit int
	now         func() time.Time
}

type GamesOptions struct {
	// Refresh bypasses the freshness check.
	Refresh bool
	// FriendView assembles another user's library: the recently-played
	// supplement is fetched (owned-games last-played data is usually
	// withheld for non-self profiles) and the per-game store-metadata
	// lookup is skipped.
	FriendView bool
}

func NewGameSyncer(logger *slog.Logger, store Store, upstream Upstream, notifier Notifier, fanoutLimit int) *GameSyncer {
	if fanoutLimit < 1 {
		fanoutLimit = 10
	}
	return &GameSyncer{
		store:       store,
		upstream:    upstream,
		logger:      logger,
		notifier:    notifier,
		fanoutLimit: fanoutLimit,
		now:         time.Now,
	}
}

func (s *GameSyncer) WithClock(now func() time.Time) *GameSyncer {
	s.now = now
	return s
}

func (s *GameSyncer) Sync(ctx context.Context, steamID string, opts GamesOptions) ([]models.Game, error) {
	var lastSync *time.Time
	user, err := s.store.GetUser(ctx, steamID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if user != nil {
		lastSync = user.LastSyncAt
	}

	cached, err := s.store.GamesForUser(ctx, steamID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !opts.Refresh && len(cached) > 0 && !IsStale(lastSync, GamesTTL, now) {
		return cached, nil
	}

	s.logger.Info("games_sync_started", "steam_id", steamID, "refresh", opts.Refresh, "friend_view", opts.FriendView)
	notify(s.notifier, steamID, "games_sync_started", nil)

	owned, recent, err := s.fetchSources(ctx, steamID, opts.FriendView)
	if err != nil {
		// the primary owned-games call failed: propagate rather than
		// returning stale data labeled fresh
		notify(s.notifier, steamID, "games_sync_failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	games := mergeGames(steamID, owned, recent)

	if !opts.FriendView {
		s.overrideCoverArt(ctx, games)
	}

	if user == nil {
		if err := s.store.EnsureUser(ctx, steamID); err != nil {
			return nil, err
		}
	}
	if err := s.store.ReplaceGames(ctx, steamID, games, now); err != nil {
		return nil, err
	}

	s.logger.Info("games_sync_completed", "steam_id", steamID, "count", len(games))
	notify(s.notifier, steamID, "games_sync_completed", map[string]interface{}{"count": len(games)})
	return games, nil
}

// fetchSources fans out the owned-games and recently-played queries. The
// supplement is tolerated to fail; the primary is not.
func (s *GameSyncer) fetchSources(ctx context.Context, steamID string, friendView bool) ([]steam.OwnedGame, []steam.RecentGame, error) {
	var (
		wg        gosync.WaitGroup
		owned     []steam.OwnedGame
		ownedErr  error
		recent    []steam.RecentGame
		recentErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		owned, ownedErr = s.upstream.GetOwnedGames(ctx, steamID)
	}()

	if friendView {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recent, recentErr = s.upstream.GetRecentlyPlayedGames(ctx, steamID)
		}()
	}

	wg.Wait()

	if ownedErr != nil {
		return nil, nil, fmt.Errorf("owned_games_fetch_failed: %w", ownedErr)
	}
	if recentErr != nil {
		s.logger.Warn("recently_played_fetch_failed", "steam_id", steamID, "error", recentErr)
		recent = nil
	}
	return owned, recent, nil
}

// mergeGames normalizes the two upstream responses into one game set. For
// fields present in both, the recently-played source wins; it is the more
// reliable one under privacy settings.
func mergeGames(steamID string, owned []steam.OwnedGame, recent []steam.RecentGame) []models.Game {
	recentByApp := make(map[int64]steam.RecentGame, len(recent))
	for _, r := range recent {
		recentByApp[r.AppID] = r
	}

	games := make([]models.Game, 0, len(owned))
	for _, og := range owned {
		g := models.Game{
			SteamID:         steamID,
			AppID:           og.AppID,
			Name:            og.Name,
			PlaytimeMinutes: og.PlaytimeMinutes,
			Playtime2Weeks:  og.Playtime2Weeks,
			IconURL:         steam.GameIconURL(og.AppID, og.IconHash),
			LogoURL:         steam.GameLogoURL(og.AppID),
			CoverURL:        steam.GameHeaderURL(og.AppID),
			LastPlayedAt:    og.LastPlayedAt,
		}
		if r, ok := recentByApp[og.AppID]; ok {
			if r.LastPlayedAt != nil {
				g.LastPlayedAt = r.LastPlayedAt
			}
			if r.Playtime2Weeks > 0 {
				g.Playtime2Weeks = r.Playtime2Weeks
			}
		}
		games = append(games, g)
	}
	return games
}

// overrideCoverArt upgrades the CDN-derived cover with storefront images
// where available, tried in priority order. Best-effort: any failure keeps
// the derived URL.
func (s *GameSyncer) overrideCoverArt(ctx context.Context, games []models.Game) {
	sem := make(chan struct{}, s.fanoutLimit)
	var wg gosync.WaitGroup

	for i := range games {
		wg.Add(1)
		sem <- struct{}{}
		go func(g *models.Game) {
			defer wg.Done()
			defer func() { <-sem }()

			meta, err := s.upstream.GetStoreMetadata(ctx, g.AppID)
			if err != nil {
				s.logger.Debug("store_metadata_unavailable", "app_id", g.AppID, "error", err)
				return
			}
			switch {
			case meta.HeaderImage != "":
				g.CoverURL = meta.HeaderImage
			case meta.CapsuleImage != "":
				g.CoverURL = meta.CapsuleImage
			case meta.BackgroundImage != "":
				g.CoverURL = meta.BackgroundImage
			}
		}(&games[i])
	}
	wg.Wait()
}
