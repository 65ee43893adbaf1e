package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

const testAppID int64 = 440

func seedAchievements(store *fakeStore, syncedAt time.Time) {
	store.userAch[achKey(testSteamID, testAppID)] = []models.UserAchievement{
		{Achievement: models.Achievement{AppID: testAppID, APIName: "ACH_OLD"}, SteamID: testSteamID, Unlocked: true},
	}
	store.achSyncedAt[achKey(testSteamID, testAppID)] = timePtr(syncedAt)
}

func workingUpstream() *fakeUpstream {
	return &fakeUpstream{
		schemaFn: func(int64) ([]steam.SchemaAchievement, error) {
			return []steam.SchemaAchievement{
				{APIName: "ACH_WIN", DisplayName: "Winner"},
			}, nil
		},
		playerFn: func(string, int64) ([]steam.PlayerAchievement, error) {
			return []steam.PlayerAchievement{
				{APIName: "ACH_WIN", Achieved: true, UnlockTime: 1000},
			}, nil
		},
	}
}

func TestAchievementSync_FreshCacheServed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAchievements(store, now.Add(-10*time.Minute))

	fetched := false
	upstream := workingUpstream()
	upstream.playerFn = func(string, int64) ([]steam.PlayerAchievement, error) {
		fetched = true
		return nil, nil
	}

	s := NewAchievementSyncer(testLogger(), store, upstream, nil).WithClock(func() time.Time { return now })

	res, err := s.Sync(context.Background(), testSteamID, testAppID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeCached {
		t.Errorf("expected outcome %q, got %q", OutcomeCached, res.Outcome)
	}
	if fetched {
		t.Error("expected no upstream fetch while the cache is fresh")
	}
	if len(res.Achievements) != 1 || res.Achievements[0].APIName != "ACH_OLD" {
		t.Errorf("expected the cached rows, got %+v", res.Achievements)
	}
}

func TestAchievementSync_StaleCacheRefreshes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAchievements(store, now.Add(-2*time.Hour))

	s := NewAchievementSyncer(testLogger(), store, workingUpstream(), nil).WithClock(func() time.Time { return now })

	res, err := s.Sync(context.Background(), testSteamID, testAppID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeFresh {
		t.Errorf("expected outcome %q, got %q", OutcomeFresh, res.Outcome)
	}
	if len(res.Achievements) != 1 || res.Achievements[0].APIName != "ACH_WIN" {
		t.Errorf("expected the refreshed rows, got %+v", res.Achievements)
	}

	stamp := store.achSyncedAt[achKey(testSteamID, testAppID)]
	if stamp == nil || !stamp.Equal(now) {
		t.Errorf("expected sync stamp %v, got %v", now, stamp)
	}
}

func TestAchievementSync_PrimaryFailureFallsBackToCache(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAchievements(store, now.Add(-2*time.Hour))

	upstream := workingUpstream()
	upstream.playerFn = func(string, int64) ([]steam.PlayerAchievement, error) {
		return nil, errors.New("private profile")
	}

	s := NewAchievementSyncer(testLogger(), store, upstream, nil).WithClock(func() time.Time { return now })

	res, err := s.Sync(context.Background(), testSteamID, testAppID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeStaleCache {
		t.Errorf("expected outcome %q, got %q", OutcomeStaleCache, res.Outcome)
	}
	if len(res.Achievements) != 1 || res.Achievements[0].APIName != "ACH_OLD" {
		t.Errorf("expected the stale cached rows, got %+v", res.Achievements)
	}
}

func TestAchievementSync_PrimaryFailureWithNoCache(t *testing.T) {
	store := newFakeStore()

	upstream := workingUpstream()
	upstream.schemaFn = func(int64) ([]steam.SchemaAchievement, error) {
		return nil, errors.New("schema unavailable")
	}

	s := NewAchievementSyncer(testLogger(), store, upstream, nil)

	res, err := s.Sync(context.Background(), testSteamID, testAppID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeUnavailable {
		t.Errorf("expected outcome %q, got %q", OutcomeUnavailable, res.Outcome)
	}
	if len(res.Achievements) != 0 {
		t.Errorf("expected no rows, got %d", len(res.Achievements))
	}
}

func TestAchievementSync_ForceRefreshClearsBeforeFetching(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAchievements(store, now.Add(-10*time.Minute))

	upstream := workingUpstream()
	upstream.playerFn = func(string, int64) ([]steam.PlayerAchievement, error) {
		return nil, errors.New("upstream down")
	}

	s := NewAchievementSyncer(testLogger(), store, upstream, nil).WithClock(func() time.Time { return now })

	res, err := s.Sync(context.Background(), testSteamID, testAppID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the clear ran before the failed fetch, so no stale rows remain to
	// fall back to
	if store.clearCalls != 1 {
		t.Errorf("expected 1 clear call, got %d", store.clearCalls)
	}
	if res.Outcome != OutcomeUnavailable {
		t.Errorf("expected outcome %q, got %q", OutcomeUnavailable, res.Outcome)
	}
	if len(store.userAch[achKey(testSteamID, testAppID)]) != 0 {
		t.Error("expected cached rows to be cleared")
	}
}

func TestAchievementSync_SupplementaryFailuresDegradeSilently(t *testing.T) {
	store := newFakeStore()

	upstream := workingUpstream()
	upstream.globalFn = func(int64) (map[string]float64, error) {
		return nil, errors.New("percentages down")
	}
	upstream.legacyFn = func(string, int64) (map[string]string, error) {
		return nil, errors.New("feed down")
	}

	s := NewAchievementSyncer(testLogger(), store, upstream, nil)

	res, err := s.Sync(context.Background(), testSteamID, testAppID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeFresh {
		t.Errorf("expected outcome %q despite supplement failures, got %q", OutcomeFresh, res.Outcome)
	}
	if len(res.Achievements) != 1 {
		t.Errorf("expected 1 row, got %d", len(res.Achievements))
	}
}
