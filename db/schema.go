package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement must be idempotent.
// users and colleges belong to the profile service and are created here only
// so that foreign keys resolve in a fresh database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS colleges (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id         SERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		college_id INT REFERENCES colleges(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bounties (
		id                  SERIAL PRIMARY KEY,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL,
		tags                TEXT[] NOT NULL DEFAULT '{}',
		amount              BIGINT NOT NULL CHECK (amount > 0),
		deadline            TIMESTAMPTZ NOT NULL,
		difficulty          TEXT NOT NULL DEFAULT 'Basic',
		created_by          INT NOT NULL REFERENCES users(id),
		eligible_college_id INT REFERENCES colleges(id),
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		team_size           INT NOT NULL CHECK (team_size > 1),
		team_assigned_count INT NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bounties_active_deadline_idx ON bounties (deadline) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS bounty_queue (
		id        BIGSERIAL PRIMARY KEY,
		bounty_id INT NOT NULL REFERENCES bounties(id) ON DELETE CASCADE,
		user_id   INT NOT NULL REFERENCES users(id),
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT bounty_queue_user_id_key UNIQUE (user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS bounty_queue_bounty_idx ON bounty_queue (bounty_id, joined_at)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id        UUID PRIMARY KEY,
		bounty_id INT NOT NULL REFERENCES bounties(id) ON DELETE RESTRICT,
		name      TEXT NOT NULL,
		formed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS team_members (
		team_id   UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		bounty_id INT NOT NULL,
		user_id   INT NOT NULL REFERENCES users(id),
		PRIMARY KEY (team_id, user_id),
		CONSTRAINT team_members_bounty_id_user_id_key UNIQUE (bounty_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_bounties (
		user_id                  INT PRIMARY KEY REFERENCES users(id),
		last_completed_bounty_id INT REFERENCES bounties(id) ON DELETE SET NULL,
		last_completed_at        TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS completed_bounties (
		user_id      INT NOT NULL REFERENCES users(id),
		bounty_id    INT NOT NULL REFERENCES bounties(id) ON DELETE CASCADE,
		completed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, bounty_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         BIGSERIAL PRIMARY KEY,
		user_id    INT NOT NULL REFERENCES users(id),
		message    TEXT NOT NULL,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
}

// Migrate creates the tables used by the enrollment engine if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
