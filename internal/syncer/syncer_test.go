package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"steam-shelf/internal/db"
	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

// fakeStore is an in-memory Store for the sync tests.
type fakeStore struct {
	mu gosync.Mutex

	users map[string]*models.User
	games map[string][]models.Game

	defs        map[int64][]models.Achievement
	userAch     map[string][]models.UserAchievement // key: steamID|appID
	achSyncedAt map[string]*time.Time

	stats map[string]*models.UserStatistics

	replaceGamesErr error
	clearCalls      int
	saveAchCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]*models.User),
		games:       make(map[string][]models.Game),
		defs:        make(map[int64][]models.Achievement),
		userAch:     make(map[string][]models.UserAchievement),
		achSyncedAt: make(map[string]*time.Time),
		stats:       make(map[string]*models.UserStatistics),
	}
}

func achKey(steamID string, appID int64) string {
	return fmt.Sprintf("%s|%d", steamID, appID)
}

func (f *fakeStore) GetUser(ctx context.Context, steamID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[steamID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) EnsureUser(ctx context.Context, steamID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[steamID]; !ok {
		f.users[steamID] = &models.User{SteamID: steamID}
	}
	return nil
}

func (f *fakeStore) StaleUsers(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, u := range f.users {
		if u.LastSyncAt == nil || u.LastSyncAt.Before(cutoff) {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeStore) GamesForUser(ctx context.Context, steamID string) ([]models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Game(nil), f.games[steamID]...), nil
}

func (f *fakeStore) ReplaceGames(ctx context.Context, steamID string, games []models.Game, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceGamesErr != nil {
		return f.replaceGamesErr
	}
	f.games[steamID] = append([]models.Game(nil), games...)
	u, ok := f.users[steamID]
	if !ok {
		u = &models.User{SteamID: steamID}
		f.users[steamID] = u
	}
	t := syncedAt
	u.LastSyncAt = &t
	return nil
}

func (f *fakeStore) UpsertAchievementDefinitions(ctx context.Context, defs []models.Achievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range defs {
		f.defs[d.AppID] = append(f.defs[d.AppID], d)
	}
	return nil
}

func (f *fakeStore) UserAchievementsForGame(ctx context.Context, steamID string, appID int64) ([]models.UserAchievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UserAchievement(nil), f.userAch[achKey(steamID, appID)]...), nil
}

func (f *fakeStore) ClearUserAchievements(ctx context.Context, steamID string, appID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	delete(f.userAch, achKey(steamID, appID))
	delete(f.achSyncedAt, achKey(steamID, appID))
	return nil
}

func (f *fakeStore) SaveUserAchievements(ctx context.Context, steamID string, appID int64, rows []models.UserAchievement, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveAchCalls++
	f.userAch[achKey(steamID, appID)] = append([]models.UserAchievement(nil), rows...)
	t := syncedAt
	f.achSyncedAt[achKey(steamID, appID)] = &t
	return nil
}

func (f *fakeStore) AchievementSyncedAt(ctx context.Context, steamID string, appID int64) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.achSyncedAt[achKey(steamID, appID)], nil
}

func (f *fakeStore) GetStatistics(ctx context.Context, steamID string) (*models.UserStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stats[steamID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStore) SaveStatistics(ctx context.Context, st *models.UserStatistics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *st
	f.stats[st.SteamID] = &cp
	return nil
}

// fakeUpstream lets each test script the Steam responses per method.
type fakeUpstream struct {
	ownedFn     func(steamID string) ([]steam.OwnedGame, error)
	recentFn    func(steamID string) ([]steam.RecentGame, error)
	schemaFn    func(appID int64) ([]steam.SchemaAchievement, error)
	playerFn    func(steamID string, appID int64) ([]steam.PlayerAchievement, error)
	globalFn    func(appID int64) (map[string]float64, error)
	legacyFn    func(steamID string, appID int64) (map[string]string, error)
	storeMetaFn func(appID int64) (*steam.StoreMetadata, error)
}

func (f *fakeUpstream) GetOwnedGames(ctx context.Context, steamID string) ([]steam.OwnedGame, error) {
	if f.ownedFn == nil {
		return nil, nil
	}
	return f.ownedFn(steamID)
}

func (f *fakeUpstream) GetRecentlyPlayedGames(ctx context.Context, steamID string) ([]steam.RecentGame, error) {
	if f.recentFn == nil {
		return nil, nil
	}
	return f.recentFn(steamID)
}

func (f *fakeUpstream) GetSchemaForGame(ctx context.Context, appID int64) ([]steam.SchemaAchievement, error) {
	if f.schemaFn == nil {
		return nil, nil
	}
	return f.schemaFn(appID)
}

func (f *fakeUpstream) GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]steam.PlayerAchievement, error) {
	if f.playerFn == nil {
		return nil, nil
	}
	return f.playerFn(steamID, appID)
}

func (f *fakeUpstream) GetGlobalAchievementPercentages(ctx context.Context, appID int64) (map[string]float64, error) {
	if f.globalFn == nil {
		return map[string]float64{}, nil
	}
	return f.globalFn(appID)
}

func (f *fakeUpstream) GetLegacyAchievementDescriptions(ctx context.Context, steamID string, appID int64) (map[string]string, error) {
	if f.legacyFn == nil {
		return map[string]string{}, nil
	}
	return f.legacyFn(steamID, appID)
}

func (f *fakeUpstream) GetStoreMetadata(ctx context.Context, appID int64) (*steam.StoreMetadata, error) {
	if f.storeMetaFn == nil {
		return nil, errors.New("no store metadata")
	}
	return f.storeMetaFn(appID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func timePtr(t time.Time) *time.Time { return &t }
