package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// StoreMetadata is the image set from the storefront appdetails endpoint.
// Higher fidelity than the CDN-derived default, but only available for apps
// still listed on the store.
type StoreMetadata struct {
	HeaderImage     string
	CapsuleImage    string
	BackgroundImage string
}

type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		HeaderImage  string `json:"header_image"`
		CapsuleImage string `json:"capsule_image"`
		Background   string `json:"background"`
	} `json:"data"`
}

// GetStoreMetadata queries the storefront API. Note this is a different
// host than the Web API and takes no key.
func (c *Client) GetStoreMetadata(ctx context.Context, appID int64) (*StoreMetadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("limiter_wait_failed: %w", err)
	}

	detailsURL := fmt.Sprintf("%s/api/appdetails?appids=%d", c.storeBase, appID)
	req, err := http.NewRequestWithContext(ctx, "GET", detailsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed_to_create_request: %w", err)
	}
	req.Header.Set("User-Agent", "steam-shelf/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store_api_error: status=%d", resp.StatusCode)
	}

	var out map[string]appDetailsEntry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed_to_decode_response: %w", err)
	}

	entry, ok := out[fmt.Sprintf("%d", appID)]
	if !ok || !entry.Success {
		return nil, fmt.Errorf("store_metadata_unavailable: app=%d", appID)
	}

	return &StoreMetadata{
		HeaderImage:     entry.Data.HeaderImage,
		CapsuleImage:    entry.Data.CapsuleImage,
		BackgroundImage: entry.Data.Background,
	}, nil
}
