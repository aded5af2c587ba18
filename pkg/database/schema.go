package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var _ Executor = (*pgx.Conn)(nil)

// schemaUp creates the event journal. Rows are never updated or deleted by the service.
// run_id scopes seq and campaign_id, which restart with every process.
var schemaUp = []string{
	`CREATE TABLE IF NOT EXISTS engine_events (
		id           UUID PRIMARY KEY,
		run_id       UUID NOT NULL,
		seq          BIGINT NOT NULL,
		event_type   VARCHAR(64) NOT NULL,
		campaign_id  BIGINT,
		actor        VARCHAR(255) NOT NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		data         JSONB NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE engine_events ADD COLUMN IF NOT EXISTS run_id UUID`,
	`DROP INDEX IF EXISTS idx_engine_events_campaign`,
	`CREATE INDEX IF NOT EXISTS idx_engine_events_run_campaign ON engine_events (run_id, campaign_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_engine_events_type ON engine_events (event_type)`,
}

var schemaDown = []string{
	`DROP TABLE IF EXISTS engine_events CASCADE`,
}

// Migrate creates the journal tables if they do not exist
func Migrate(ctx context.Context, db Executor) error {
	for _, stmt := range schemaUp {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Drop removes the journal tables
func Drop(ctx context.Context, db Executor) error {
	for _, stmt := range schemaDown {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}
	return nil
}
