package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"steam-shelf/internal/auth"
	"steam-shelf/internal/db"
	"steam-shelf/internal/models"
	"steam-shelf/internal/syncer"
)

const friendsCacheTTL = 10 * time.Minute

func (s *Server) health(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	dbOK := s.db.Ping(ctx) == nil
	redisOK := s.redis.RDB().Ping(ctx).Err() == nil

	status := http.StatusOK
	if !dbOK || !redisOK {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ok", false: "degraded"}[dbOK && redisOK],
		"db":     dbOK,
		"redis":  redisOK,
	})
}

func (s *Server) authLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, auth.LoginURL(s.cfg.PublicBaseURL))
}

func (s *Server) authCallback(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	steamID, err := s.verifier.Verify(ctx, c.Request.URL.Query())
	if err != nil {
		s.log.Warn("openid_verification_failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "login_failed",
				"message": "Steam did not confirm the login",
			},
		})
		return
	}

	summaries, err := s.summaries.GetPlayerSummaries(ctx, []string{steamID})
	if err != nil || len(summaries) == 0 {
		s.log.Warn("profile_fetch_failed", "steam_id", steamID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": gin.H{
				"code":    "profile_unavailable",
				"message": "could not load your Steam profile",
			},
		})
		return
	}

	p := summaries[0]
	u := models.User{
		SteamID:     p.SteamID,
		PersonaName: p.PersonaName,
		AvatarURL:   p.AvatarURL,
		ProfileURL:  p.ProfileURL,
		JoinedAt:    p.JoinedAt,
	}
	if p.CountryCode != "" {
		u.CountryCode = &p.CountryCode
	}
	if err := s.store.UpsertUser(ctx, &u); err != nil {
		s.log.Error("user_upsert_failed", "steam_id", steamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "login_failed",
				"message": "could not persist your profile",
			},
		})
		return
	}

	cookie, err := s.sessions.Create(ctx, steamID)
	if err != nil {
		s.log.Error("session_create_failed", "steam_id", steamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "login_failed",
				"message": "could not create a session",
			},
		})
		return
	}

	c.SetCookie(auth.SessionCookie, cookie, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)

	s.log.Info("login_completed", "steam_id", steamID)
	c.Redirect(http.StatusFound, s.dashboardURL())
}

func (s *Server) authLogout(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	if cookie, err := c.Cookie(auth.SessionCookie); err == nil && cookie != "" {
		if err := s.sessions.Destroy(ctx, cookie); err != nil {
			s.log.Warn("session_destroy_failed", "error", err)
		}
	}
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) me(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	steamID := c.GetString(ctxSteamID)
	user, err := s.store.GetUser(ctx, steamID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "user_not_found",
					"message": "no profile for this session",
				},
			})
			return
		}
		s.log.Error("get_user_failed", "steam_id", steamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "could not load profile",
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) serveWS(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request)
}

func (s *Server) getGames(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	target := c.Param("steam_id")
	viewer := c.GetString(ctxSteamID)

	opts := syncer.GamesOptions{
		Refresh:    refreshRequested(c),
		FriendView: viewer != target,
	}

	games, err := s.games.Sync(ctx, target, opts)
	if err != nil {
		s.log.Error("games_sync_failed", "steam_id", target, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": gin.H{
				"code":    "sync_failed",
				"message": "could not sync the game library",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"games": games,
		"count": len(games),
	})
}

func (s *Server) getAchievements(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	target := c.Param("steam_id")
	appID, err := strconv.ParseInt(c.Param("app_id"), 10, 64)
	if err != nil || appID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "invalid_app_id",
				"message": "app_id must be a positive integer",
			},
		})
		return
	}

	res, err := s.achievements.Sync(ctx, target, appID, refreshRequested(c))
	if err != nil {
		s.log.Error("achievements_sync_failed", "steam_id", target, "app_id", appID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "sync_failed",
				"message": "could not sync achievements",
			},
		})
		return
	}

	achievements := res.Achievements
	if achievements == nil {
		achievements = []models.UserAchievement{}
	}
	c.JSON(http.StatusOK, gin.H{
		"achievements": achievements,
		"count":        len(achievements),
		"source":       res.Outcome,
	})
}

func (s *Server) getStats(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	target := c.Param("steam_id")
	stats, err := s.stats.Sync(ctx, target, refreshRequested(c))
	if err != nil {
		s.log.Error("stats_sync_failed", "steam_id", target, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": gin.H{
				"code":    "sync_failed",
				"message": "could not calculate statistics",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}

func (s *Server) getFriends(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	target := c.Param("steam_id")
	refresh := refreshRequested(c)

	// short response cache: friend profiles barely change between page loads
	cacheKey := "friends:resp:" + target
	if !refresh {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		} else if !errors.Is(err, goredis.Nil) {
			s.log.Warn("friends_cache_read_failed", "error", err)
		}
	}

	ids, err := s.gate.FriendIDs(ctx, target, refresh)
	if err != nil {
		s.log.Warn("friend_list_unavailable", "steam_id", target, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": gin.H{
				"code":    "friends_unavailable",
				"message": "could not load the friend list",
			},
		})
		return
	}

	summaries, err := s.summaries.GetPlayerSummaries(ctx, ids)
	if err != nil {
		s.log.Warn("friend_summaries_failed", "steam_id", target, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": gin.H{
				"code":    "friends_unavailable",
				"message": "could not load friend profiles",
			},
		})
		return
	}

	body, err := json.Marshal(gin.H{
		"friends": summaries,
		"count":   len(summaries),
	})
	if err == nil {
		if err := s.redis.Set(ctx, cacheKey, string(body), friendsCacheTTL); err != nil {
			s.log.Warn("friends_cache_write_failed", "error", err)
		}
		c.Header("X-Cache", "MISS")
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friends": summaries,
		"count":   len(summaries),
	})
}

// dashboardURL is where a completed login lands: the first configured
// front-end origin, falling back to the API's own base URL.
func (s *Server) dashboardURL() string {
	if len(s.cfg.CORSOrigins) > 0 && s.cfg.CORSOrigins[0] != "*" {
		return s.cfg.CORSOrigins[0]
	}
	return s.cfg.PublicBaseURL
}

func refreshRequested(c *gin.Context) bool {
	v := c.Query("refresh")
	return v == "1" || v == "true"
}
