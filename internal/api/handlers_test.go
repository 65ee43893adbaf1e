package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"steam-shelf/internal/authz"
	"steam-shelf/internal/cache"
	"steam-shelf/internal/config"
	"steam-shelf/internal/security"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeFriendSource struct {
	friends []string
}

func (f *fakeFriendSource) GetFriendList(ctx context.Context, steamID string) ([]string, error) {
	return f.friends, nil
}

// testServer builds a Server with only the pieces a middleware/handler test
// needs; everything touching Postgres or Redis stays nil.
func testServer(friends ...string) *Server {
	return &Server{
		log: testLogger(),
		cfg: config.Config{
			PublicBaseURL: "https://shelf.example",
			CORSOrigins:   []string{"http://localhost:3000"},
		},
		gate:         authz.NewGate(testLogger(), &fakeFriendSource{friends: friends}, cache.NewMemoryCache()),
		loginLimiter: security.NewLimiterStore(rate.Every(2*time.Second), 5, 10*time.Minute),
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "hello", "hello"},
		{"control characters stripped", "he\x00ll\x07o", "hello"},
		{"whitespace kept", "a\tb\nc", "a\tb\nc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeInput(tt.input); got != tt.want {
				t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := testServer()
	r := gin.New()
	r.Use(s.corsMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		origin     string
		wantHeader string
	}{
		{"allowed origin", "http://localhost:3000", "http://localhost:3000"},
		{"unknown origin", "https://evil.example", ""},
		{"no origin", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	s := testServer()
	r := gin.New()
	r.Use(s.corsMiddleware())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestInputValidationMiddleware_RejectsOversizedParam(t *testing.T) {
	s := testServer()
	r := gin.New()
	r.Use(s.inputValidationMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x?q="+strings.Repeat("a", 600), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized parameter, got %d", w.Code)
	}
}

func TestSessionMiddleware_MissingCookie(t *testing.T) {
	s := testServer()
	r := gin.New()
	r.Use(s.sessionMiddleware())
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session cookie, got %d", w.Code)
	}
}

func TestAuthorizationMiddleware(t *testing.T) {
	const (
		viewer = "76561198000000001"
		friend = "76561198000000002"
		other  = "76561198000000003"
	)

	tests := []struct {
		name     string
		target   string
		friends  []string
		wantCode int
	}{
		{"self access", viewer, nil, http.StatusOK},
		{"friend access", friend, []string{friend}, http.StatusOK},
		{"non-friend denied", other, []string{friend}, http.StatusForbidden},
		{"no friend list denies", friend, nil, http.StatusForbidden},
		{"malformed id", "not-a-steamid", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(tt.friends...)
			r := gin.New()
			r.Use(func(c *gin.Context) { c.Set(ctxSteamID, viewer) })
			r.GET("/users/:steam_id/games", s.authorizationMiddleware(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/users/"+tt.target+"/games", nil))

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestAuthLogin_RedirectsToSteam(t *testing.T) {
	s := testServer()
	r := gin.New()
	r.GET("/api/v1/auth/login", s.authLogin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/login", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}

	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Host != "steamcommunity.com" {
		t.Errorf("expected redirect to steamcommunity.com, got %q", loc.Host)
	}
	if got := loc.Query().Get("openid.return_to"); got != "https://shelf.example/api/v1/auth/callback" {
		t.Errorf("unexpected return_to %q", got)
	}
}

func TestLoginRateLimitMiddleware(t *testing.T) {
	s := testServer()
	// tiny burst so the test exhausts it quickly
	s.loginLimiter = security.NewLimiterStore(rate.Every(time.Hour), 2, time.Hour)

	r := gin.New()
	r.Use(s.loginRateLimitMiddleware())
	r.GET("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected the burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected the third attempt limited, got %v", codes)
	}
}

func TestRefreshRequested(t *testing.T) {
	r := gin.New()
	var got bool
	r.GET("/x", func(c *gin.Context) {
		got = refreshRequested(c)
		c.Status(http.StatusOK)
	})

	for query, want := range map[string]bool{
		"":              false,
		"?refresh=1":    true,
		"?refresh=true": true,
		"?refresh=no":   false,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/x"+query, nil))
		if got != want {
			t.Errorf("refreshRequested(%q) = %v, want %v", query, got, want)
		}
	}
}
