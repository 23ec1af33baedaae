package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent so it can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_uidx ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id            UUID PRIMARY KEY,
		user_id       UUID NOT NULL REFERENCES users(id),
		title         TEXT NOT NULL CHECK (btrim(title) <> ''),
		tags          TEXT[] NOT NULL DEFAULT '{}',
		json_file_url TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_user_updated_idx ON sessions (user_id, updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS sessions_published_created_idx ON sessions (created_at DESC) WHERE status = 'published'`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
