package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const openidEndpoint = "https://steamcommunity.com/openid/login"

var claimedIDPattern = regexp.MustCompile(`^https?://steamcommunity\.com/openid/id/(\d{17})$`)

// Verifier validates an OpenID callback and returns the authenticated
// SteamID. The verification itself is a black-box round trip to Steam.
type Verifier interface {
	Verify(ctx context.Context, callbackParams url.Values) (string, error)
}

// LoginURL builds the steamcommunity.com OpenID 2.0 redirect for the
// stateless "identifier select" flow.
func LoginURL(publicBaseURL string) string {
	returnTo := strings.TrimRight(publicBaseURL, "/") + "/api/v1/auth/callback"
	params := url.Values{}
	params.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	params.Set("openid.mode", "checkid_setup")
	params.Set("openid.return_to", returnTo)
	params.Set("openid.realm", publicBaseURL)
	params.Set("openid.identity", "http://specs.openid.net/auth/2.0/identifier_select")
	params.Set("openid.claimed_id", "http://specs.openid.net/auth/2.0/identifier_select")
	return openidEndpoint + "?" + params.Encode()
}

// SteamVerifier implements Verifier against the live Steam endpoint.
type SteamVerifier struct {
	httpClient *http.Client
	endpoint   string
}

func NewSteamVerifier() *SteamVerifier {
	return &SteamVerifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   openidEndpoint,
	}
}

// Verify posts the callback parameters back to Steam with the mode swapped
// to check_authentication, and extracts the SteamID from the claimed id.
func (v *SteamVerifier) Verify(ctx context.Context, callbackParams url.Values) (string, error) {
	steamID, err := SteamIDFromClaimedID(callbackParams.Get("openid.claimed_id"))
	if err != nil {
		return "", err
	}

	check := url.Values{}
	for k, vals := range callbackParams {
		if strings.HasPrefix(k, "openid.") {
			check[k] = vals
		}
	}
	check.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, "POST", v.endpoint, strings.NewReader(check.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed_to_create_request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openid_verify_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openid_verify_error: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("openid_verify_read_failed: %w", err)
	}

	if !strings.Contains(string(body), "is_valid:true") {
		return "", fmt.Errorf("openid_assertion_rejected")
	}
	return steamID, nil
}

// SteamIDFromClaimedID extracts the 64-bit SteamID from an OpenID claimed
// identity URL.
func SteamIDFromClaimedID(claimedID string) (string, error) {
	m := claimedIDPattern.FindStringSubmatch(strings.TrimSpace(claimedID))
	if m == nil {
		return "", fmt.Errorf("invalid_claimed_id: %s", claimedID)
	}
	return m[1], nil
}
