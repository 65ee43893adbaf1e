package syncer

import (
	"math"

	"steam-shelf/internal/models"
)

// Aggregate computes summary statistics from a game set and the fetched
// achievement lists, keyed by app id. Pure: no clock, no I/O; CalculatedAt
// is stamped by the caller.
//
// Games absent from achievementsByApp (nothing fetched for them) are left
// out of the completion average entirely rather than dragging it to zero.
func Aggregate(steamID string, games []models.Game, achievementsByApp map[int64][]models.UserAchievement) models.UserStatistics {
	st := models.UserStatistics{SteamID: steamID}

	st.TotalGames = len(games)
	for _, g := range games {
		if g.PlaytimeMinutes > 0 {
			st.StartedGames++
		}
	}

	var completionSum float64
	var ratedGames int
	for _, achievements := range achievementsByApp {
		if len(achievements) == 0 {
			continue
		}
		unlocked := 0
		for _, a := range achievements {
			if a.Unlocked {
				unlocked++
			}
		}
		st.TotalAchievements += len(achievements)
		st.UnlockedAchievements += unlocked
		completionSum += float64(unlocked) / float64(len(achievements)) * 100
		ratedGames++
	}

	if ratedGames > 0 {
		st.AverageCompletion = round1(completionSum / float64(ratedGames))
	}

	return st
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
