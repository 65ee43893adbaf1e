package models

import "time"

type User struct {
	SteamID     string     `json:"steam_id"`
	PersonaName string     `json:"persona_name"`
	AvatarURL   string     `json:"avatar_url"`
	ProfileURL  string     `json:"profile_url"`
	CountryCode *string    `json:"country_code,omitempty"`
	CountryName *string    `json:"country_name,omitempty"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// LastSyncAt is the last time this user's game library was refreshed
	// from the Steam Web API. Only the games sync path writes it.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

type Game struct {
	SteamID         string `json:"-"`
	AppID           int64  `json:"app_id"`
	Name            string `json:"name"`
	PlaytimeMinutes int64  `json:"playtime_minutes"`
	Playtime2Weeks  int64  `json:"playtime_2weeks_minutes"`
	IconURL         string `json:"icon_url"`
	LogoURL         string `json:"logo_url"`
	CoverURL        string `json:"cover_url"`
	// LastPlayedAt may be withheld by Steam privacy settings.
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
}

// Achievement is the per-app definition shared by every owner of the app.
type Achievement struct {
	AppID         int64    `json:"app_id"`
	APIName       string   `json:"api_name"`
	DisplayName   string   `json:"display_name"`
	Description   string   `json:"description"`
	IconURL       string   `json:"icon_url"`
	IconGrayURL   string   `json:"icon_gray_url"`
	Hidden        bool     `json:"hidden"`
	GlobalPercent *float64 `json:"global_percent,omitempty"`
}

// UserAchievement joins an Achievement definition with one user's unlock
// state. Unlocked with a nil UnlockedAt is valid: Steam omits the unlock
// time for some old unlocks.
type UserAchievement struct {
	Achievement
	SteamID    string     `json:"-"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

type UserStatistics struct {
	SteamID              string `json:"steam_id"`
	TotalGames           int    `json:"total_games"`
	StartedGames         int    `json:"started_games"`
	TotalAchievements    int    `json:"total_achievements"`
	UnlockedAchievements int    `json:"unlocked_achievements"`
	// AverageCompletion is the mean per-game completion rate in percent,
	// rounded to one decimal place.
	AverageCompletion float64   `json:"average_completion"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

type FriendList struct {
	SteamID  string    `json:"steam_id"`
	Friends  []string  `json:"friends"`
	CachedAt time.Time `json:"cached_at"`
}
