package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"crowdgov/internal/domain"
)

// DB is the subset of *pgxpool.Pool the repositories use
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// EventJournal defines the interface for the durable event history
type EventJournal interface {
	// Append stores an event. Appending the same event twice is a no-op.
	Append(ctx context.Context, ev domain.Event) error

	// ListByCampaign returns a campaign's events from the current run after afterSeq, oldest first
	ListByCampaign(ctx context.Context, campaignID, afterSeq uint64, limit int) ([]domain.Event, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Events EventJournal
}
