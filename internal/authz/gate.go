package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"steam-shelf/internal/cache"
	"steam-shelf/internal/models"
	"steam-shelf/internal/syncer"
)

// FriendSource fetches the viewer's friend list from upstream.
type FriendSource interface {
	GetFriendList(ctx context.Context, steamID string) ([]string, error)
}

// Gate decides whether a viewer may read a target's data: always for self,
// otherwise only for friends. Friend lists are cached for FriendListTTL;
// on upstream failure an expired cached list is still trusted, and with no
// cached list at all the gate denies.
type Gate struct {
	source FriendSource
	cache  cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewGate(logger *slog.Logger, source FriendSource, c cache.Cache) *Gate {
	return &Gate{
		source: source,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

func (g *Gate) IsAuthorized(ctx context.Context, viewerID, targetID string) (bool, error) {
	if viewerID == targetID {
		return true, nil
	}

	friends, err := g.FriendIDs(ctx, viewerID, false)
	if err != nil {
		// conservative deny: no friend list could be established at all
		g.logger.Warn("authorization_friend_list_unavailable", "viewer", viewerID, "error", err)
		return false, nil
	}

	for _, id := range friends {
		if id == targetID {
			return true, nil
		}
	}
	return false, nil
}

// FriendIDs returns the viewer's friend list, from cache when fresh. On a
// failed refresh it falls back to whatever cached list exists, expired or
// not; serving stale here is the designed degraded mode, not an error.
func (g *Gate) FriendIDs(ctx context.Context, steamID string, refresh bool) ([]string, error) {
	key := friendKey(steamID)

	if !refresh {
		if raw, err := g.cache.Get(ctx, key); err == nil {
			var fl models.FriendList
			if err := json.Unmarshal(raw, &fl); err == nil {
				return fl.Friends, nil
			}
		}
	}

	friends, err := g.source.GetFriendList(ctx, steamID)
	if err != nil {
		g.logger.Warn("friend_list_fetch_failed", "steam_id", steamID, "error", err)
		if raw, staleErr := g.cache.GetStale(ctx, key); staleErr == nil {
			var fl models.FriendList
			if jsonErr := json.Unmarshal(raw, &fl); jsonErr == nil {
				g.logger.Info("friend_list_served_stale", "steam_id", steamID, "cached_at", fl.CachedAt)
				return fl.Friends, nil
			}
		}
		return nil, fmt.Errorf("friend_list_unavailable: %w", err)
	}

	fl := models.FriendList{
		SteamID:  steamID,
		Friends:  friends,
		CachedAt: g.now(),
	}
	if raw, err := json.Marshal(fl); err == nil {
		if err := g.cache.Set(ctx, key, raw, syncer.FriendListTTL); err != nil {
			g.logger.Warn("friend_list_cache_write_failed", "steam_id", steamID, "error", err)
		}
	}
	return friends, nil
}

func friendKey(steamID string) string {
	return "friends:" + steamID
}
