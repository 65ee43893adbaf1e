package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"steam-shelf/internal/models"
)

func (s *Store) GetStatistics(ctx context.Context, steamID string) (*models.UserStatistics, error) {
	var st models.UserStatistics
	err := s.db.Pool.QueryRow(ctx,
		`SELECT steam_id, total_games, started_games, total_achievements,
		        unlocked_achievements, average_completion, calculated_at
		 FROM user_statistics WHERE steam_id = $1`,
		steamID,
	).Scan(&st.SteamID, &st.TotalGames, &st.StartedGames, &st.TotalAchievements,
		&st.UnlockedAchievements, &st.AverageCompletion, &st.CalculatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get_statistics_failed: %w", err)
	}
	return &st, nil
}

// SaveStatistics overwrites the whole record; statistics are never
// partially updated.
func (s *Store) SaveStatistics(ctx context.Context, st *models.UserStatistics) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO user_statistics (steam_id, total_games, started_games,
		        total_achievements, unlocked_achievements, average_completion, calculated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (steam_id) DO UPDATE SET
			total_games           = EXCLUDED.total_games,
			started_games         = EXCLUDED.started_games,
			total_achievements    = EXCLUDED.total_achievements,
			unlocked_achievements = EXCLUDED.unlocked_achievements,
			average_completion    = EXCLUDED.average_completion,
			calculated_at         = EXCLUDED.calculated_at`,
		st.SteamID, st.TotalGames, st.StartedGames,
		st.TotalAchievements, st.UnlockedAchievements, st.AverageCompletion, st.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("save_statistics_failed: %w", err)
	}
	return nil
}
