package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"steam-shelf/internal/redis"
	"steam-shelf/internal/security"
)

const (
	SessionCookie = "shelf_session"
	sessionTTL    = 30 * 24 * time.Hour
)

var ErrNoSession = errors.New("no_session")

// Sessions maps opaque tokens to SteamIDs in Redis. The cookie value is
// the token AES-GCM-encrypted, so a leaked Redis dump alone cannot forge
// cookies.
type Sessions struct {
	redis *redis.Client
	key   []byte
}

func NewSessions(redisClient *redis.Client, key []byte) *Sessions {
	return &Sessions{redis: redisClient, key: key}
}

// Create registers a session for steamID and returns the cookie value.
func (s *Sessions) Create(ctx context.Context, steamID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("session_token_generation_failed: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.redis.Set(ctx, sessionKey(token), steamID, sessionTTL); err != nil {
		return "", fmt.Errorf("session_store_failed: %w", err)
	}

	cookie, err := security.EncryptToken(token, s.key)
	if err != nil {
		return "", fmt.Errorf("session_encrypt_failed: %w", err)
	}
	return cookie, nil
}

// Resolve maps a cookie value back to a SteamID.
func (s *Sessions) Resolve(ctx context.Context, cookie string) (string, error) {
	token, err := security.DecryptToken(cookie, s.key)
	if err != nil {
		return "", ErrNoSession
	}

	steamID, err := s.redis.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("session_lookup_failed: %w", err)
	}
	return steamID, nil
}

// Destroy invalidates the session behind the cookie.
func (s *Sessions) Destroy(ctx context.Context, cookie string) error {
	token, err := security.DecryptToken(cookie, s.key)
	if err != nil {
		return nil // nothing to destroy
	}
	return s.redis.Del(ctx, sessionKey(token))
}

func sessionKey(token string) string {
	return "session:" + token
}
