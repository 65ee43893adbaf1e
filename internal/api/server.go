package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"steam-shelf/internal/auth"
	"steam-shelf/internal/authz"
	"steam-shelf/internal/config"
	"steam-shelf/internal/db"
	"steam-shelf/internal/redis"
	"steam-shelf/internal/security"
	"steam-shelf/internal/steam"
	"steam-shelf/internal/syncer"
	"steam-shelf/internal/ws"
)

type Server struct {
	log          *slog.Logger
	store        *db.Store
	db           *db.DB
	redis        *redis.Client
	cfg          config.Config
	router       *gin.Engine
	sessions     *auth.Sessions
	verifier     auth.Verifier
	gate         *authz.Gate
	games        *syncer.GameSyncer
	achievements *syncer.AchievementSyncer
	stats        *syncer.StatsSyncer
	summaries    SummarySource
	hub          *ws.Hub
	loginLimiter *security.LimiterStore
}

// SummarySource resolves profile summaries for the friends endpoint.
type SummarySource interface {
	GetPlayerSummaries(ctx context.Context, steamIDs []string) ([]steam.PlayerSummary, error)
}

type Deps struct {
	Store        *db.Store
	DB           *db.DB
	Redis        *redis.Client
	Sessions     *auth.Sessions
	Verifier     auth.Verifier
	Gate         *authz.Gate
	Games        *syncer.GameSyncer
	Achievements *syncer.AchievementSyncer
	Stats        *syncer.StatsSyncer
	Summaries    SummarySource
	Hub          *ws.Hub
}

func NewServer(log *slog.Logger, cfg config.Config, deps Deps) *Server {
	s := &Server{
		log:          log,
		store:        deps.Store,
		db:           deps.DB,
		redis:        deps.Redis,
		cfg:          cfg,
		router:       gin.New(),
		sessions:     deps.Sessions,
		verifier:     deps.Verifier,
		gate:         deps.Gate,
		games:        deps.Games,
		achievements: deps.Achievements,
		stats:        deps.Stats,
		summaries:    deps.Summaries,
		hub:          deps.Hub,
		// the OpenID round trip is expensive; keep login attempts per IP slow
		loginLimiter: security.NewLimiterStore(rate.Every(2*time.Second), 5, 10*time.Minute),
	}

	gin.SetMode(gin.ReleaseMode)
	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.inputValidationMiddleware())
	r.Use(s.rateLimitMiddleware())

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.health)

		authFlow := v1.Group("/auth")
		authFlow.Use(s.loginRateLimitMiddleware())
		{
			authFlow.GET("/login", s.authLogin)
			authFlow.GET("/callback", s.authCallback)
			authFlow.POST("/logout", s.authLogout)
		}

		authed := v1.Group("")
		authed.Use(s.sessionMiddleware())
		{
			authed.GET("/me", s.me)
			authed.GET("/ws", s.serveWS)

			users := authed.Group("/users/:steam_id")
			users.Use(s.authorizationMiddleware())
			{
				users.GET("/games", s.getGames)
				users.GET("/games/:app_id/achievements", s.getAchievements)
				users.GET("/stats", s.getStats)
				users.GET("/friends", s.getFriends)
			}
		}
	}

	// Legacy health route for load balancers
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	// sync fan-out against a large library can legitimately take a while
	return context.WithTimeout(c.Request.Context(), 60*time.Second)
}
