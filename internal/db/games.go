package db

import (
	"context"
	"fmt"
	"time"

	"steam-shelf/internal/models"
)

func (s *Store) GamesForUser(ctx context.Context, steamID string) ([]models.Game, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT steam_id, app_id, name, playtime_minutes, playtime_2weeks,
		        icon_url, logo_url, cover_url, last_played_at
		 FROM games
		 WHERE steam_id = $1
		 ORDER BY playtime_minutes DESC, app_id ASC`,
		steamID,
	)
	if err != nil {
		return nil, fmt.Errorf("games_for_user_failed: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.SteamID, &g.AppID, &g.Name, &g.PlaytimeMinutes,
			&g.Playtime2Weeks, &g.IconURL, &g.LogoURL, &g.CoverURL, &g.LastPlayedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// ReplaceGames swaps the user's entire game set and stamps last_sync_at in
// a single transaction, so a crash cannot leave new games with a stale
// sync marker.
func (s *Store) ReplaceGames(ctx context.Context, steamID string, games []models.Game, syncedAt time.Time) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace_games_begin_failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM games WHERE steam_id = $1`, steamID); err != nil {
		return fmt.Errorf("replace_games_delete_failed: %w", err)
	}

	if len(games) > 0 {
		rows := make([][]interface{}, 0, len(games))
		for _, g := range games {
			rows = append(rows, []interface{}{
				steamID, g.AppID, g.Name, g.PlaytimeMinutes, g.Playtime2Weeks,
				g.IconURL, g.LogoURL, g.CoverURL, g.LastPlayedAt,
			})
		}
		if _, err := tx.CopyFrom(ctx,
			[]string{"games"},
			[]string{"steam_id", "app_id", "name", "playtime_minutes", "playtime_2weeks",
				"icon_url", "logo_url", "cover_url", "last_played_at"},
			&copyFromRows{rows: rows},
		); err != nil {
			return fmt.Errorf("replace_games_copy_failed: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET last_sync_at = $1, updated_at = NOW() WHERE steam_id = $2`,
		syncedAt, steamID,
	); err != nil {
		return fmt.Errorf("replace_games_touch_failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace_games_commit_failed: %w", err)
	}

	s.logger.Debug("games_replaced", "steam_id", steamID, "count", len(games))
	return nil
}
