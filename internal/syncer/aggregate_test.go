package syncer

import (
	"testing"

	"steam-shelf/internal/models"
)

func achList(total, unlocked int) []models.UserAchievement {
	rows := make([]models.UserAchievement, total)
	for i := 0; i < unlocked; i++ {
		rows[i].Unlocked = true
	}
	return rows
}

func TestAggregate_Empty(t *testing.T) {
	st := Aggregate("76561198000000001", nil, nil)

	if st.TotalGames != 0 || st.StartedGames != 0 || st.TotalAchievements != 0 ||
		st.UnlockedAchievements != 0 || st.AverageCompletion != 0 {
		t.Errorf("expected all-zero statistics, got %+v", st)
	}
}

func TestAggregate_StartedGames(t *testing.T) {
	games := []models.Game{
		{AppID: 1, PlaytimeMinutes: 0},
		{AppID: 2, PlaytimeMinutes: 5},
		{AppID: 3, PlaytimeMinutes: 9000},
	}

	st := Aggregate("76561198000000001", games, nil)

	if st.TotalGames != 3 {
		t.Errorf("expected 3 total games, got %d", st.TotalGames)
	}
	if st.StartedGames != 2 {
		t.Errorf("expected 2 started games, got %d", st.StartedGames)
	}
}

func TestAggregate_AverageIsMeanOfPerGameRates(t *testing.T) {
	games := []models.Game{{AppID: 1}, {AppID: 2}}
	byApp := map[int64][]models.UserAchievement{
		1: achList(10, 10), // 100%
		2: achList(100, 0), // 0%
	}

	st := Aggregate("76561198000000001", games, byApp)

	// mean of per-game rates, not unlocked/total overall (which would be
	// 10/110 = 9.1)
	if st.AverageCompletion != 50.0 {
		t.Errorf("expected average completion 50.0, got %v", st.AverageCompletion)
	}
	if st.TotalAchievements != 110 {
		t.Errorf("expected 110 total achievements, got %d", st.TotalAchievements)
	}
	if st.UnlockedAchievements != 10 {
		t.Errorf("expected 10 unlocked achievements, got %d", st.UnlockedAchievements)
	}
}

func TestAggregate_GamesWithoutDataAreExcludedFromAverage(t *testing.T) {
	games := []models.Game{{AppID: 1}, {AppID: 2}, {AppID: 3}}
	byApp := map[int64][]models.UserAchievement{
		1: achList(4, 3), // 75%
		// apps 2 and 3 had no achievement data fetched
	}

	st := Aggregate("76561198000000001", games, byApp)

	if st.AverageCompletion != 75.0 {
		t.Errorf("expected average completion 75.0, got %v", st.AverageCompletion)
	}
}

func TestAggregate_Rounding(t *testing.T) {
	games := []models.Game{{AppID: 1}, {AppID: 2}, {AppID: 3}}
	byApp := map[int64][]models.UserAchievement{
		1: achList(3, 1), // 33.333...%
		2: achList(3, 1),
		3: achList(3, 1),
	}

	st := Aggregate("76561198000000001", games, byApp)

	if st.AverageCompletion != 33.3 {
		t.Errorf("expected 33.3, got %v", st.AverageCompletion)
	}
}
