package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS workout_plans (
        plan_id     TEXT PRIMARY KEY,
        user_id     TEXT NOT NULL,
        title       TEXT NOT NULL,
        goal        TEXT NOT NULL DEFAULT '',
        level       TEXT NOT NULL,
        sessions    JSONB NOT NULL DEFAULT '[]',
        created_at  TIMESTAMPTZ NOT NULL,
        updated_at  TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS workout_plans_user_idx ON workout_plans (user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS plan_outbox (
        event_id      BIGSERIAL PRIMARY KEY,
        event_type    TEXT NOT NULL,
        partition_key TEXT NOT NULL,
        payload       JSONB NOT NULL,
        attempts      INT NOT NULL DEFAULT 0,
        last_error    TEXT,
        next_retry_at TIMESTAMPTZ,
        published_at  TIMESTAMPTZ,
        abandoned_at  TIMESTAMPTZ,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS plan_outbox_pending_idx ON plan_outbox (event_id)
        WHERE published_at IS NULL AND abandoned_at IS NULL`,
}

// Migrate applies the plan server schema. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
