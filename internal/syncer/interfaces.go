package syncer

import (
	"context"
	"time"

	"steam-shelf/internal/models"
	"steam-shelf/internal/steam"
)

// Upstream is the slice of the Steam Web API the sync engine consumes.
// Implemented by *steam.Client; faked in tests.
type Upstream interface {
	GetOwnedGames(ctx context.Context, steamID string) ([]steam.OwnedGame, error)
	GetRecentlyPlayedGames(ctx context.Context, steamID string) ([]steam.RecentGame, error)
	GetSchemaForGame(ctx context.Context, appID int64) ([]steam.SchemaAchievement, error)
	GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]steam.PlayerAchievement, error)
	GetGlobalAchievementPercentages(ctx context.Context, appID int64) (map[string]float64, error)
	GetLegacyAchievementDescriptions(ctx context.Context, steamID string, appID int64) (map[string]string, error)
	GetStoreMetadata(ctx context.Context, appID int64) (*steam.StoreMetadata, error)
}

// Store is the persistence surface the sync engine writes through.
// Implemented by *db.Store.
type Store interface {
	GetUser(ctx context.Context, steamID string) (*models.User, error)
	EnsureUser(ctx context.Context, steamID string) error
	StaleUsers(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	GamesForUser(ctx context.Context, steamID string) ([]models.Game, error)
	ReplaceGames(ctx context.Context, steamID string, games []models.Game, syncedAt time.Time) error

	UpsertAchievementDefinitions(ctx context.Context, defs []models.Achievement) error
	UserAchievementsForGame(ctx context.Context, steamID string, appID int64) ([]models.UserAchievement, error)
	ClearUserAchievements(ctx context.Context, steamID string, appID int64) error
	SaveUserAchievements(ctx context.Context, steamID string, appID int64, rows []models.UserAchievement, syncedAt time.Time) error
	AchievementSyncedAt(ctx context.Context, steamID string, appID int64) (*time.Time, error)

	GetStatistics(ctx context.Context, steamID string) (*models.UserStatistics, error)
	SaveStatistics(ctx context.Context, st *models.UserStatistics) error
}

// Notifier receives sync lifecycle events, e.g. for the dashboard's live
// websocket feed. Publish must not block.
type Notifier interface {
	Publish(steamID string, event string, fields map[string]interface{})
}

func notify(n Notifier, steamID, event string, fields map[string]interface{}) {
	if n != nil {
		n.Publish(steamID, event, fields)
	}
}
