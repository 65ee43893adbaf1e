package steam

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// OwnedGame is one entry from IPlayerService/GetOwnedGames.
type OwnedGame struct {
	AppID           int64
	Name            string
	PlaytimeMinutes int64
	Playtime2Weeks  int64
	IconHash        string
	LastPlayedAt    *time.Time // withheld by privacy settings for many profiles
}

// RecentGame is one entry from IPlayerService/GetRecentlyPlayedGames. Its
// last-played data is populated more reliably than GetOwnedGames' for
// non-self profiles.
type RecentGame struct {
	AppID          int64
	Playtime2Weeks int64
	LastPlayedAt   *time.Time
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int `json:"game_count"`
		Games     []struct {
			AppID           int64  `json:"appid"`
			Name            string `json:"name"`
			PlaytimeForever int64  `json:"playtime_forever"`
			Playtime2Weeks  int64  `json:"playtime_2weeks"`
			ImgIconURL      string `json:"img_icon_url"`
			RtimeLastPlayed int64  `json:"rtime_last_played"`
		} `json:"games"`
	} `json:"response"`
}

func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]OwnedGame, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("include_appinfo", "1")
	params.Set("include_played_free_games", "1")

	var out ownedGamesResponse
	if err := c.getJSON(ctx, c.apiURL("IPlayerService", "GetOwnedGames", "v1", params), &out); err != nil {
		return nil, fmt.Errorf("get_owned_games_failed: %w", err)
	}

	games := make([]OwnedGame, 0, len(out.Response.Games))
	for _, g := range out.Response.Games {
		games = append(games, OwnedGame{
			AppID:           g.AppID,
			Name:            g.Name,
			PlaytimeMinutes: g.PlaytimeForever,
			Playtime2Weeks:  g.Playtime2Weeks,
			IconHash:        g.ImgIconURL,
			LastPlayedAt:    unixToTime(g.RtimeLastPlayed),
		})
	}
	return games, nil
}

type recentGamesResponse struct {
	Response struct {
		Games []struct {
			AppID           int64 `json:"appid"`
			Playtime2Weeks  int64 `json:"playtime_2weeks"`
			RtimeLastPlayed int64 `json:"rtime_last_played"`
		} `json:"games"`
	} `json:"response"`
}

func (c *Client) GetRecentlyPlayedGames(ctx context.Context, steamID string) ([]RecentGame, error) {
	params := url.Values{}
	params.Set("steamid", steamID)

	var out recentGamesResponse
	if err := c.getJSON(ctx, c.apiURL("IPlayerService", "GetRecentlyPlayedGames", "v1", params), &out); err != nil {
		return nil, fmt.Errorf("get_recently_played_failed: %w", err)
	}

	games := make([]RecentGame, 0, len(out.Response.Games))
	for _, g := range out.Response.Games {
		games = append(games, RecentGame{
			AppID:          g.AppID,
			Playtime2Weeks: g.Playtime2Weeks,
			LastPlayedAt:   unixToTime(g.RtimeLastPlayed),
		})
	}
	return games, nil
}

// unixToTime maps Steam's zero-means-absent unix timestamps to *time.Time.
func unixToTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
