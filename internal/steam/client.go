package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiBase       = "https://api.steampowered.com"
	communityBase = "https://steamcommunity.com"
	storeBase     = "https://store.steampowered.com"
)

var (
	// ErrPrivateProfile is returned when Steam refuses a per-user query
	// because of the target's privacy settings.
	ErrPrivateProfile = errors.New("private_profile")
)

// Client talks to the Steam Web API. All calls are single-attempt from the
// caller's point of view; only 429 responses are retried internally, honoring
// Retry-After.
type Client struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker
	logger     *slog.Logger

	// overridable in tests
	apiBase       string
	communityBase string
	storeBase     string
}

// NewHTTPClient builds an HTTP client tuned for the Steam Web API:
// connection pooling, keep-alive, and timeouts on every phase so a stuck
// upstream cannot hang a sync.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

func NewClient(logger *slog.Logger, apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: NewHTTPClient(),
		// Steam allows 100k calls/day per key; ~1 req/s with bursts keeps
		// a full-library sync well under the limit.
		limiter:       rate.NewLimiter(rate.Limit(4), 8),
		breaker:       newBreaker(),
		logger:        logger,
		apiBase:       apiBase,
		communityBase: communityBase,
		storeBase:     storeBase,
	}
}

// getJSON performs one rate-limited GET and decodes the JSON body into out.
// 429 is retried up to maxRetries honoring Retry-After; 401/403 map to
// ErrPrivateProfile for per-user endpoints.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("limiter_wait_failed: %w", err)
	}

	if !c.breaker.allow() {
		c.logger.Warn("steam_circuit_open", "state", c.breaker.stateString())
		return ErrUpstreamOpen
	}

	var resp *http.Response
	var lastErr error
	maxRetries := 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed_to_create_request: %w", err)
		}
		req.Header.Set("User-Agent", "steam-shelf/1.0")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("steam_request_failed", "error", err)
			lastErr = fmt.Errorf("request_failed: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := 1.0
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if parsed, parseErr := time.ParseDuration(ra + "s"); parseErr == nil {
					retryAfter = parsed.Seconds()
				}
			}
			retryAfter += 0.5
			c.logger.Warn("steam_rate_limited", "retry_after", retryAfter, "attempt", attempt+1)
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(retryAfter * float64(time.Second))):
			}
			continue
		}

		break
	}

	if resp == nil {
		c.breaker.recordFailure()
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("failed_after_retries")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		c.breaker.recordSuccess()
	case http.StatusUnauthorized, http.StatusForbidden:
		// the upstream answered; privacy refusals are not outages
		c.breaker.recordSuccess()
		return ErrPrivateProfile
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate_limited_after_retries")
	default:
		if resp.StatusCode >= 500 {
			c.breaker.recordFailure()
		}
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("steam_api_error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed_to_decode_response: %w", err)
	}
	return nil
}

// apiURL builds an api.steampowered.com URL with the key injected.
func (c *Client) apiURL(iface, method, version string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)
	return fmt.Sprintf("%s/%s/%s/%s/?%s", c.apiBase, iface, method, version, params.Encode())
}
