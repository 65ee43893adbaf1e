package syncer

import (
	"time"

	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

// MergeAchievements normalizes the four upstream responses into shared
// definitions plus per-user rows, joined on API name with the schema as
// the canonical achievement list.
//
// Description priority: player state (hidden achievements reveal theirs
// after unlocking) > legacy XML feed > schema > empty.
func MergeAchievements(
	steamID string,
	appID int64,
	schema []steam.SchemaAchievement,
	player []steam.PlayerAchievement,
	globalPct map[string]float64,
	legacyDesc map[string]string,
) ([]models.Achievement, []models.UserAchievement) {
	playerByName := make(map[string]steam.PlayerAchievement, len(player))
	for _, p := range player {
		playerByName[p.APIName] = p
	}

	defs := make([]models.Achievement, 0, len(schema))
	rows := make([]models.UserAchievement, 0, len(schema))

	for _, sa := range schema {
		p := playerByName[sa.APIName]

		description := sa.Description
		if d, ok := legacyDesc[sa.APIName]; ok && d != "" {
			description = d
		}
		if p.Description != "" {
			description = p.Description
		}

		def := models.Achievement{
			AppID:       appID,
			APIName:     sa.APIName,
			DisplayName: sa.DisplayName,
			Description: description,
			IconURL:     sa.IconURL,
			IconGrayURL: sa.IconGrayURL,
			Hidden:      sa.Hidden,
		}
		if pct, ok := globalPct[sa.APIName]; ok {
			def.GlobalPercent = &pct
		}

		row := models.UserAchievement{
			Achievement: def,
			SteamID:     steamID,
			Unlocked:    p.Achieved,
		}
		// zero unlock time means "no timestamp recorded", not the epoch
		if p.Achieved && p.UnlockTime > 0 {
			t := time.Unix(p.UnlockTime, 0).UTC()
			row.UnlockedAt = &t
		}

		defs = append(defs, def)
		rows = append(rows, row)
	}

	return defs, rows
}
