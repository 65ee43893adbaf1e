package steam

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// SchemaAchievement is the canonical per-app definition from
// ISteamUserStats/GetSchemaForGame.
type SchemaAchievement struct {
	APIName     string
	DisplayName string
	Description string
	IconURL     string
	IconGrayURL string
	Hidden      bool
}

// PlayerAchievement is the per-user state from
// ISteamUserStats/GetPlayerAchievements. Description is only populated for
// hidden achievements the player has revealed by unlocking them.
type PlayerAchievement struct {
	APIName     string
	Achieved    bool
	UnlockTime  int64 // unix seconds, 0 means Steam did not record a time
	Description string
}

type schemaResponse struct {
	Game struct {
		AvailableGameStats struct {
			Achievements []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				Description string `json:"description"`
				Icon        string `json:"icon"`
				IconGray    string `json:"icongray"`
				Hidden      int    `json:"hidden"`
			} `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

func (c *Client) GetSchemaForGame(ctx context.Context, appID int64) ([]SchemaAchievement, error) {
	params := url.Values{}
	params.Set("appid", fmt.Sprintf("%d", appID))
	params.Set("l", "english")

	var out schemaResponse
	if err := c.getJSON(ctx, c.apiURL("ISteamUserStats", "GetSchemaForGame", "v2", params), &out); err != nil {
		return nil, fmt.Errorf("get_schema_failed: %w", err)
	}

	achievements := make([]SchemaAchievement, 0, len(out.Game.AvailableGameStats.Achievements))
	for _, a := range out.Game.AvailableGameStats.Achievements {
		achievements = append(achievements, SchemaAchievement{
			APIName:     a.Name,
			DisplayName: a.DisplayName,
			Description: a.Description,
			IconURL:     a.Icon,
			IconGrayURL: a.IconGray,
			Hidden:      a.Hidden == 1,
		})
	}
	return achievements, nil
}

type playerAchievementsResponse struct {
	PlayerStats struct {
		Success      bool `json:"success"`
		Achievements []struct {
			APIName     string `json:"apiname"`
			Achieved    int    `json:"achieved"`
			UnlockTime  int64  `json:"unlocktime"`
			Description string `json:"description"`
		} `json:"achievements"`
	} `json:"playerstats"`
}

func (c *Client) GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]PlayerAchievement, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("appid", fmt.Sprintf("%d", appID))
	params.Set("l", "english")

	var out playerAchievementsResponse
	if err := c.getJSON(ctx, c.apiURL("ISteamUserStats", "GetPlayerAchievements", "v1", params), &out); err != nil {
		return nil, fmt.Errorf("get_player_achievements_failed: %w", err)
	}

	achievements := make([]PlayerAchievement, 0, len(out.PlayerStats.Achievements))
	for _, a := range out.PlayerStats.Achievements {
		achievements = append(achievements, PlayerAchievement{
			APIName:     a.APIName,
			Achieved:    a.Achieved == 1,
			UnlockTime:  a.UnlockTime,
			Description: a.Description,
		})
	}
	return achievements, nil
}

type globalPercentagesResponse struct {
	AchievementPercentages struct {
		Achievements []struct {
			Name    string  `json:"name"`
			Percent float64 `json:"percent"`
		} `json:"achievements"`
	} `json:"achievementpercentages"`
}

func (c *Client) GetGlobalAchievementPercentages(ctx context.Context, appID int64) (map[string]float64, error) {
	params := url.Values{}
	params.Set("gameid", fmt.Sprintf("%d", appID))

	var out globalPercentagesResponse
	if err := c.getJSON(ctx, c.apiURL("ISteamUserStats", "GetGlobalAchievementPercentagesForApp", "v2", params), &out); err != nil {
		return nil, fmt.Errorf("get_global_percentages_failed: %w", err)
	}

	percentages := make(map[string]float64, len(out.AchievementPercentages.Achievements))
	for _, a := range out.AchievementPercentages.Achievements {
		percentages[a.Name] = a.Percent
	}
	return percentages, nil
}

type legacyStatsXML struct {
	Achievements struct {
		Items []struct {
			APIName     string `xml:"apiname"`
			Description string `xml:"description"`
		} `xml:"achievement"`
	} `xml:"achievements"`
}

// GetLegacyAchievementDescriptions scrapes the old community XML stats
// feed. It carries descriptions for some hidden achievements that the
// schema endpoint blanks out, so the achievement merge prefers it over the
// schema description.
func (c *Client) GetLegacyAchievementDescriptions(ctx context.Context, steamID string, appID int64) (map[string]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("limiter_wait_failed: %w", err)
	}

	feedURL := fmt.Sprintf("%s/profiles/%s/stats/%d/achievements/?xml=1", c.communityBase, steamID, appID)
	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed_to_create_request: %w", err)
	}
	req.Header.Set("User-Agent", "steam-shelf/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("legacy_feed_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("legacy_feed_error: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("legacy_feed_read_failed: %w", err)
	}

	var parsed legacyStatsXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("legacy_feed_parse_failed: %w", err)
	}

	descriptions := make(map[string]string, len(parsed.Achievements.Items))
	for _, a := range parsed.Achievements.Items {
		if a.Description != "" {
			descriptions[a.APIName] = a.Description
		}
	}
	return descriptions, nil
}
