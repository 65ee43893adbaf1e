package db

import "context"

// schema is applied on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		steam_id      TEXT PRIMARY KEY,
		persona_name  TEXT NOT NULL DEFAULT '',
		avatar_url    TEXT NOT NULL DEFAULT '',
		profile_url   TEXT NOT NULL DEFAULT '',
		country_code  TEXT,
		country_name  TEXT,
		joined_at     TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_sync_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		steam_id          TEXT NOT NULL REFERENCES users(steam_id),
		app_id            BIGINT NOT NULL,
		name              TEXT NOT NULL DEFAULT '',
		playtime_minutes  BIGINT NOT NULL DEFAULT 0,
		playtime_2weeks   BIGINT NOT NULL DEFAULT 0,
		icon_url          TEXT NOT NULL DEFAULT '',
		logo_url          TEXT NOT NULL DEFAULT '',
		cover_url         TEXT NOT NULL DEFAULT '',
		last_played_at    TIMESTAMPTZ,
		PRIMARY KEY (steam_id, app_id)
	)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		app_id         BIGINT NOT NULL,
		api_name       TEXT NOT NULL,
		display_name   TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		icon_url       TEXT NOT NULL DEFAULT '',
		icon_gray_url  TEXT NOT NULL DEFAULT '',
		hidden         BOOLEAN NOT NULL DEFAULT FALSE,
		global_percent DOUBLE PRECISION,
		PRIMARY KEY (app_id, api_name)
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		steam_id    TEXT NOT NULL,
		app_id      BIGINT NOT NULL,
		api_name    TEXT NOT NULL,
		unlocked    BOOLEAN NOT NULL DEFAULT FALSE,
		unlocked_at TIMESTAMPTZ,
		PRIMARY KEY (steam_id, app_id, api_name)
	)`,
	`CREATE TABLE IF NOT EXISTS achievement_sync (
		steam_id  TEXT NOT NULL,
		app_id    BIGINT NOT NULL,
		synced_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (steam_id, app_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_statistics (
		steam_id              TEXT PRIMARY KEY,
		total_games           INT NOT NULL DEFAULT 0,
		started_games         INT NOT NULL DEFAULT 0,
		total_achievements    INT NOT NULL DEFAULT 0,
		unlocked_achievements INT NOT NULL DEFAULT 0,
		average_completion    DOUBLE PRECISION NOT NULL DEFAULT 0,
		calculated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS artwork_mirror (
		app_id     BIGINT PRIMARY KEY,
		source_url TEXT NOT NULL,
		mirror_url TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_playtime ON games (steam_id, playtime_minutes DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_user_achievements_app ON user_achievements (steam_id, app_id)`,
}

// Migrate applies the schema. Safe to run on every startup.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
