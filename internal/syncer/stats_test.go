package syncer

import (
	"context"
	"testing"
	"time"

	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

func statsSyncerForTest(store *fakeStore, upstream *fakeUpstream, now time.Time) *StatsSyncer {
	clock := func() time.Time { return now }
	games := NewGameSyncer(testLogger(), store, upstream, nil, 10).WithClock(clock)
	achievements := NewAchievementSyncer(testLogger(), store, upstream, nil).WithClock(clock)
	return NewStatsSyncer(testLogger(), store, games, achievements, nil, 10).WithClock(clock)
}

func TestStatsSync_FreshCacheServed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.users[testSteamID] = userWithSync(now.Add(-30 * time.Minute))
	store.stats[testSteamID] = &models.UserStatistics{
		SteamID:      testSteamID,
		TotalGames:   5,
		CalculatedAt: now.Add(-20 * time.Minute),
	}

	recomputed := false
	upstream := &fakeUpstream{
		ownedFn: func(string) ([]steam.OwnedGame, error) {
			recomputed = true
			return nil, nil
		},
	}

	s := statsSyncerForTest(store, upstream, now)

	st, err := s.Sync(context.Background(), testSteamID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recomputed {
		t.Error("expected no recomputation while statistics are fresh")
	}
	if st.TotalGames != 5 {
		t.Errorf("expected the cached statistics, got %+v", st)
	}
}

func TestStatsSync_RecomputesWhenGamesResyncedAfterCalculation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	// statistics calculated an hour ago, games resynced after that: the
	// 24-hour TTL has not elapsed but the data-changed check must fire
	store.users[testSteamID] = userWithSync(now.Add(-10 * time.Minute))
	store.games[testSteamID] = gameSet(2)
	store.stats[testSteamID] = &models.UserStatistics{
		SteamID:      testSteamID,
		TotalGames:   1,
		CalculatedAt: now.Add(-1 * time.Hour),
	}

	upstream := workingUpstream()

	s := statsSyncerForTest(store, upstream, now)

	st, err := s.Sync(context.Background(), testSteamID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.TotalGames != 2 {
		t.Errorf("expected recomputed statistics over 2 games, got %d", st.TotalGames)
	}
	if !st.CalculatedAt.Equal(now) {
		t.Errorf("expected calculated_at %v, got %v", now, st.CalculatedAt)
	}
}

func TestStatsSync_TTLExpiryTriggersRecompute(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.users[testSteamID] = userWithSync(now.Add(-25 * time.Hour))
	store.stats[testSteamID] = &models.UserStatistics{
		SteamID:      testSteamID,
		CalculatedAt: now.Add(-25 * time.Hour),
	}

	upstream := workingUpstream()
	upstream.ownedFn = func(string) ([]steam.OwnedGame, error) {
		return []steam.OwnedGame{{AppID: 440, PlaytimeMinutes: 60}}, nil
	}

	s := statsSyncerForTest(store, upstream, now)

	st, err := s.Sync(context.Background(), testSteamID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.TotalGames != 1 || st.StartedGames != 1 {
		t.Errorf("expected recomputed statistics, got %+v", st)
	}
}

func TestStatsSync_EmptyLibraryPersistsZeroRecord(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()

	upstream := &fakeUpstream{
		ownedFn: func(string) ([]steam.OwnedGame, error) {
			return nil, nil
		},
	}

	s := statsSyncerForTest(store, upstream, now)

	st, err := s.Sync(context.Background(), testSteamID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.TotalGames != 0 || st.AverageCompletion != 0 {
		t.Errorf("expected all-zero statistics, got %+v", st)
	}
	if _, ok := store.stats[testSteamID]; !ok {
		t.Error("expected the zero record to be persisted")
	}
}

func TestStatsSync_FailedAchievementFetchesAreOmitted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()

	upstream := workingUpstream()
	upstream.ownedFn = func(string) ([]steam.OwnedGame, error) {
		return []steam.OwnedGame{{AppID: 440, PlaytimeMinutes: 60}, {AppID: 570}}, nil
	}
	upstream.schemaFn = func(appID int64) ([]steam.SchemaAchievement, error) {
		if appID == 570 {
			return nil, context.DeadlineExceeded
		}
		return []steam.SchemaAchievement{{APIName: "ACH_WIN"}, {APIName: "ACH_MORE"}}, nil
	}
	upstream.playerFn = func(_ string, appID int64) ([]steam.PlayerAchievement, error) {
		return []steam.PlayerAchievement{{APIName: "ACH_WIN", Achieved: true}}, nil
	}

	s := statsSyncerForTest(store, upstream, now)

	st, err := s.Sync(context.Background(), testSteamID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// app 570 contributed nothing; app 440 is 1/2 = 50%
	if st.TotalAchievements != 2 {
		t.Errorf("expected 2 total achievements, got %d", st.TotalAchievements)
	}
	if st.AverageCompletion != 50.0 {
		t.Errorf("expected average completion 50.0, got %v", st.AverageCompletion)
	}
}
