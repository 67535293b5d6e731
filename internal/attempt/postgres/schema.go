// Package postgres provides a PostgreSQL-backed [attempt.Store].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Save(ctx, rec)
//	recent, _ := store.Recent(ctx, 20)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAttempts = `
CREATE TABLE IF NOT EXISTS attempts (
    id          BIGSERIAL    PRIMARY KEY,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    lesson_id   TEXT         NOT NULL DEFAULT '',
    sentence    INTEGER      NOT NULL DEFAULT 0,
    reference   TEXT         NOT NULL,
    transcript  TEXT         NOT NULL,
    cost        INTEGER      NOT NULL DEFAULT 0,
    correct     INTEGER      NOT NULL DEFAULT 0,
    added       INTEGER      NOT NULL DEFAULT 0,
    removed     INTEGER      NOT NULL DEFAULT 0,
    accuracy    DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_attempts_created_at
    ON attempts (created_at);

CREATE INDEX IF NOT EXISTS idx_attempts_lesson_sentence
    ON attempts (lesson_id, sentence);
`

// Migrate creates the attempts table and its indexes. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlAttempts); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
