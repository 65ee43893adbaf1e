package steam

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PlayerSummary is the public profile from ISteamUser/GetPlayerSummaries.
type PlayerSummary struct {
	SteamID     string
	PersonaName string
	AvatarURL   string
	ProfileURL  string
	CountryCode string
	JoinedAt    *time.Time
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID        string `json:"steamid"`
			PersonaName    string `json:"personaname"`
			AvatarFull     string `json:"avatarfull"`
			ProfileURL     string `json:"profileurl"`
			LocCountryCode string `json:"loccountrycode"`
			TimeCreated    int64  `json:"timecreated"`
		} `json:"players"`
	} `json:"response"`
}

func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*PlayerSummary, error) {
	params := url.Values{}
	params.Set("steamids", steamID)

	var out playerSummariesResponse
	if err := c.getJSON(ctx, c.apiURL("ISteamUser", "GetPlayerSummaries", "v2", params), &out); err != nil {
		return nil, fmt.Errorf("get_player_summary_failed: %w", err)
	}

	if len(out.Response.Players) == 0 {
		return nil, fmt.Errorf("player_not_found: %s", steamID)
	}

	p := out.Response.Players[0]
	return &PlayerSummary{
		SteamID:     p.SteamID,
		PersonaName: p.PersonaName,
		AvatarURL:   p.AvatarFull,
		ProfileURL:  p.ProfileURL,
		CountryCode: p.LocCountryCode,
		JoinedAt:    unixToTime(p.TimeCreated),
	}, nil
}

// GetPlayerSummaries resolves up to 100 profiles per upstream call.
func (c *Client) GetPlayerSummaries(ctx context.Context, steamIDs []string) ([]PlayerSummary, error) {
	summaries := make([]PlayerSummary, 0, len(steamIDs))

	for start := 0; start < len(steamIDs); start += 100 {
		end := start + 100
		if end > len(steamIDs) {
			end = len(steamIDs)
		}

		params := url.Values{}
		params.Set("steamids", strings.Join(steamIDs[start:end], ","))

		var out playerSummariesResponse
		if err := c.getJSON(ctx, c.apiURL("ISteamUser", "GetPlayerSummaries", "v2", params), &out); err != nil {
			return nil, fmt.Errorf("get_player_summaries_failed: %w", err)
		}

		for _, p := range out.Response.Players {
			summaries = append(summaries, PlayerSummary{
				SteamID:     p.SteamID,
				PersonaName: p.PersonaName,
				AvatarURL:   p.AvatarFull,
				ProfileURL:  p.ProfileURL,
				CountryCode: p.LocCountryCode,
				JoinedAt:    unixToTime(p.TimeCreated),
			})
		}
	}
	return summaries, nil
}

type friendListResponse struct {
	FriendsList struct {
		Friends []struct {
			SteamID string `json:"steamid"`
		} `json:"friends"`
	} `json:"friendslist"`
}

func (c *Client) GetFriendList(ctx context.Context, steamID string) ([]string, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("relationship", "friend")

	var out friendListResponse
	if err := c.getJSON(ctx, c.apiURL("ISteamUser", "GetFriendList", "v1", params), &out); err != nil {
		return nil, fmt.Errorf("get_friend_list_failed: %w", err)
	}

	friends := make([]string, 0, len(out.FriendsList.Friends))
	for _, f := range out.FriendsList.Friends {
		friends = append(friends, f.SteamID)
	}
	return friends, nil
}
