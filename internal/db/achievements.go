package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"steam-shelf/internal/models"
)

// UpsertAchievementDefinitions writes the shared per-app definitions.
// Later syncs may refine the description, so the upsert overwrites it only
// when the new one is non-empty.
func (s *Store) UpsertAchievementDefinitions(ctx context.Context, defs []models.Achievement) error {
	if len(defs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range defs {
		batch.Queue(
			`INSERT INTO achievements (app_id, api_name, display_name, description,
			                           icon_url, icon_gray_url, hidden, global_percent)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (app_id, api_name) DO UPDATE SET
				display_name   = EXCLUDED.display_name,
				description    = CASE WHEN EXCLUDED.description <> ''
				                      THEN EXCLUDED.description
				                      ELSE achievements.description END,
				icon_url       = EXCLUDED.icon_url,
				icon_gray_url  = EXCLUDED.icon_gray_url,
				hidden         = EXCLUDED.hidden,
				global_percent = COALESCE(EXCLUDED.global_percent, achievements.global_percent)`,
			d.AppID, d.APIName, d.DisplayName, d.Description,
			d.IconURL, d.IconGrayURL, d.Hidden, d.GlobalPercent,
		)
	}

	br := s.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range defs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert_achievement_defs_failed: %w", err)
		}
	}
	return nil
}

func (s *Store) UserAchievementsForGame(ctx context.Context, steamID string, appID int64) ([]models.UserAchievement, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT a.app_id, a.api_name, a.display_name, a.description,
		        a.icon_url, a.icon_gray_url, a.hidden, a.global_percent,
		        ua.unlocked, ua.unlocked_at
		 FROM user_achievements ua
		 JOIN achievements a ON a.app_id = ua.app_id AND a.api_name = ua.api_name
		 WHERE ua.steam_id = $1 AND ua.app_id = $2
		 ORDER BY a.api_name ASC`,
		steamID, appID,
	)
	if err != nil {
		return nil, fmt.Errorf("user_achievements_failed: %w", err)
	}
	defer rows.Close()

	var out []models.UserAchievement
	for rows.Next() {
		ua := models.UserAchievement{SteamID: steamID}
		if err := rows.Scan(&ua.AppID, &ua.APIName, &ua.DisplayName, &ua.Description,
			&ua.IconURL, &ua.IconGrayURL, &ua.Hidden, &ua.GlobalPercent,
			&ua.Unlocked, &ua.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (s *Store) ClearUserAchievements(ctx context.Context, steamID string, appID int64) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("clear_achievements_begin_failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM user_achievements WHERE steam_id = $1 AND app_id = $2`,
		steamID, appID,
	); err != nil {
		return fmt.Errorf("clear_achievements_failed: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM achievement_sync WHERE steam_id = $1 AND app_id = $2`,
		steamID, appID,
	); err != nil {
		return fmt.Errorf("clear_achievement_sync_failed: %w", err)
	}
	return tx.Commit(ctx)
}

// SaveUserAchievements replaces the per-user rows for one app and stamps
// the (user, app) sync time.
func (s *Store) SaveUserAchievements(ctx context.Context, steamID string, appID int64, rows []models.UserAchievement, syncedAt time.Time) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save_achievements_begin_failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM user_achievements WHERE steam_id = $1 AND app_id = $2`,
		steamID, appID,
	); err != nil {
		return fmt.Errorf("save_achievements_delete_failed: %w", err)
	}

	if len(rows) > 0 {
		values := make([][]interface{}, 0, len(rows))
		for _, ua := range rows {
			values = append(values, []interface{}{
				steamID, appID, ua.APIName, ua.Unlocked, ua.UnlockedAt,
			})
		}
		if _, err := tx.CopyFrom(ctx,
			[]string{"user_achievements"},
			[]string{"steam_id", "app_id", "api_name", "unlocked", "unlocked_at"},
			&copyFromRows{rows: values},
		); err != nil {
			return fmt.Errorf("save_achievements_copy_failed: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO achievement_sync (steam_id, app_id, synced_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (steam_id, app_id) DO UPDATE SET synced_at = EXCLUDED.synced_at`,
		steamID, appID, syncedAt,
	); err != nil {
		return fmt.Errorf("save_achievement_sync_failed: %w", err)
	}

	return tx.Commit(ctx)
}

// AchievementSyncedAt returns when (user, app) was last synced, nil if never.
func (s *Store) AchievementSyncedAt(ctx context.Context, steamID string, appID int64) (*time.Time, error) {
	var t time.Time
	err := s.db.Pool.QueryRow(ctx,
		`SELECT synced_at FROM achievement_sync WHERE steam_id = $1 AND app_id = $2`,
		steamID, appID,
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("achievement_synced_at_failed: %w", err)
	}
	return &t, nil
}
