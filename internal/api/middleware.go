package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"steam-shelf/internal/auth"
	"steam-shelf/internal/security"
)

const ctxSteamID = "session_steam_id"

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range s.cfg.CORSOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		s.log.Info("http_request",
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", clientIP,
		)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.Request.URL.Path

		// endpoints that fan out to Steam get a tighter budget
		var limit int64 = 60 // default: 60 req/min
		var window time.Duration = 1 * time.Minute

		if strings.Contains(path, "/stats") || strings.Contains(path, "/achievements") {
			limit = 30
		}

		// sliding window over a redis sorted set
		now := time.Now().Unix()
		windowSeconds := int64(window.Seconds())
		key := fmt.Sprintf("ratelimit:sw:%s:%s", clientIP, path)

		ctx := c.Request.Context()

		oldest := now - windowSeconds
		_ = s.redis.RDB().ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", oldest)).Err()

		count, err := s.redis.RDB().ZCard(ctx, key).Result()
		if err != nil {
			s.log.Warn("rate_limit_error", "error", err)
			c.Next()
			return
		}

		if count >= limit {
			oldestReq, _ := s.redis.RDB().ZRangeWithScores(ctx, key, 0, 0).Result()
			var retryAfter int64 = windowSeconds
			if len(oldestReq) > 0 {
				retryAfter = windowSeconds - (now - int64(oldestReq[0].Score))
				if retryAfter < 0 {
					retryAfter = 0
				}
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "too many requests",
				},
			})
			c.Abort()
			return
		}

		member := fmt.Sprintf("%d", now)
		_ = s.redis.RDB().ZAdd(ctx, key, goredis.Z{
			Score:  float64(now),
			Member: member,
		}).Err()
		_ = s.redis.RDB().Expire(ctx, key, window).Err()

		c.Next()
	}
}

// loginRateLimitMiddleware throttles the OpenID flow with an in-process
// limiter; the auth endpoints must stay usable even when Redis is down.
func (s *Server) loginRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.loginLimiter.Allow(security.ClientIPFromRequest(c.Request)) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "too many login attempts",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) inputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for _, values := range query {
			for i, value := range values {
				sanitized := sanitizeInput(value)
				if len(sanitized) > 500 {
					c.JSON(http.StatusBadRequest, gin.H{
						"error": gin.H{
							"code":    "invalid_parameter",
							"message": "parameter too long",
						},
					})
					c.Abort()
					return
				}
				values[i] = sanitized
			}
		}

		for _, param := range c.Params {
			if len(param.Value) > 100 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": gin.H{
						"code":    "invalid_parameter",
						"message": "parameter too long",
					},
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

func sanitizeInput(input string) string {
	// strip control characters (except \n, \r, \t)
	result := make([]rune, 0, len(input))
	for _, r := range input {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			result = append(result, r)
		}
	}
	return string(result)
}

// sessionMiddleware resolves the session cookie to a SteamID and stores it
// in the request context.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(auth.SessionCookie)
		if err != nil || cookie == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "login required",
				},
			})
			c.Abort()
			return
		}

		steamID, err := s.sessions.Resolve(c.Request.Context(), cookie)
		if err != nil {
			if errors.Is(err, auth.ErrNoSession) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "unauthorized",
						"message": "session expired",
					},
				})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":    "session_error",
						"message": "could not resolve session",
					},
				})
			}
			c.Abort()
			return
		}

		c.Set(ctxSteamID, steamID)
		c.Next()
	}
}

// authorizationMiddleware enforces the friend gate on /users/:steam_id
// routes. Denial is 403, deliberately distinct from 404.
func (s *Server) authorizationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID := c.Param("steam_id")
		if _, err := security.ParseSteamID(targetID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "invalid_steam_id",
					"message": "steam_id is not a valid 64-bit SteamID",
				},
			})
			c.Abort()
			return
		}

		viewerID := c.GetString(ctxSteamID)
		ok, err := s.gate.IsAuthorized(c.Request.Context(), viewerID, targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "authorization_error",
					"message": "could not evaluate authorization",
				},
			})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "profile not visible to you",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
