package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"steam-shelf/internal/models"
)

var ErrNotFound = errors.New("not_found")

func (s *Store) GetUser(ctx context.Context, steamID string) (*models.User, error) {
	var u models.User
	err := s.db.Pool.QueryRow(ctx,
		`SELECT steam_id, persona_name, avatar_url, profile_url,
		        country_code, country_name, joined_at,
		        created_at, updated_at, last_sync_at
		 FROM users WHERE steam_id = $1`,
		steamID,
	).Scan(&u.SteamID, &u.PersonaName, &u.AvatarURL, &u.ProfileURL,
		&u.CountryCode, &u.CountryName, &u.JoinedAt,
		&u.CreatedAt, &u.UpdatedAt, &u.LastSyncAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get_user_failed: %w", err)
	}
	return &u, nil
}

// UpsertUser creates the user on first login and refreshes profile fields
// on later logins. last_sync_at is deliberately untouched here.
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users (steam_id, persona_name, avatar_url, profile_url,
		                    country_code, country_name, joined_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (steam_id) DO UPDATE SET
			persona_name = EXCLUDED.persona_name,
			avatar_url   = EXCLUDED.avatar_url,
			profile_url  = EXCLUDED.profile_url,
			country_code = COALESCE(EXCLUDED.country_code, users.country_code),
			country_name = COALESCE(EXCLUDED.country_name, users.country_name),
			joined_at    = COALESCE(EXCLUDED.joined_at, users.joined_at),
			updated_at   = NOW()`,
		u.SteamID, u.PersonaName, u.AvatarURL, u.ProfileURL,
		u.CountryCode, u.CountryName, u.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert_user_failed: %w", err)
	}
	return nil
}

// EnsureUser creates a bare user row if none exists. The games sync needs
// this when a friend's library is assembled before that friend ever logged
// in themselves.
func (s *Store) EnsureUser(ctx context.Context, steamID string) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users (steam_id) VALUES ($1) ON CONFLICT (steam_id) DO NOTHING`,
		steamID,
	)
	if err != nil {
		return fmt.Errorf("ensure_user_failed: %w", err)
	}
	return nil
}

// StaleUsers returns users whose library has not been synced since cutoff,
// oldest first. Used by the background resync worker.
func (s *Store) StaleUsers(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT steam_id FROM users
		 WHERE last_sync_at IS NULL OR last_sync_at < $1
		 ORDER BY last_sync_at ASC NULLS FIRST
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stale_users_failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
