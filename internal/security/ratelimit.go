package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore keeps one token-bucket limiter per client key. It guards
// the login endpoints in-process, so auth stays rate limited even when
// Redis is unavailable. Idle entries are dropped after ttl.
type LimiterStore struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	limit rate.Limit
	burst int
	ttl   time.Duration

	lastSweep time.Time
}

type clientLimiter struct {
	lim     *rate.Limiter
	lastHit time.Time
}

func NewLimiterStore(limit rate.Limit, burst int, ttl time.Duration) *LimiterStore {
	return &LimiterStore{
		clients:   make(map[string]*clientLimiter),
		limit:     limit,
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

func (s *LimiterStore) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// sweep idle entries at most once per ttl, under the same lock
	if now.Sub(s.lastSweep) > s.ttl {
		for k, v := range s.clients {
			if now.Sub(v.lastHit) > s.ttl {
				delete(s.clients, k)
			}
		}
		s.lastSweep = now
	}

	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{lim: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = cl
	}
	cl.lastHit = now

	return cl.lim.Allow()
}

// ClientIPFromRequest uses RemoteAddr only; forwarding headers are
// spoofable and this limiter sits in front of authentication.
func ClientIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
