package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crowdgov/internal/domain"
	"crowdgov/internal/events"
)

const defaultListLimit = 100

// EventRepository journals the events of one process run. Campaign ids and seqs
// restart with every run, so rows are tagged with runID and reads only see that run.
type EventRepository struct {
	db    DB
	runID string
}

var _ EventJournal = (*EventRepository)(nil)

func NewEventRepository(db DB, runID string) *EventRepository {
	return &EventRepository{db: db, runID: runID}
}

// RunID identifies the run this repository writes and reads
func (r *EventRepository) RunID() string {
	return r.runID
}

// Append journals an event, keyed by its id
func (r *EventRepository) Append(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event %d: %w", ev.Seq, err)
	}

	var campaignID *int64
	if ev.CampaignID != 0 {
		id := int64(ev.CampaignID)
		campaignID = &id
	}

	query := `
		INSERT INTO engine_events (id, seq, event_type, campaign_id, actor, occurred_at, data, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		ev.ID,
		int64(ev.Seq),
		string(ev.Type),
		campaignID,
		ev.Actor.String(),
		ev.OccurredAt,
		data,
		r.runID,
	)
	if err != nil {
		return fmt.Errorf("failed to append event %d: %w", ev.Seq, err)
	}
	return nil
}

// ListByCampaign reads this run's journaled events. Data comes back as raw JSON.
func (r *EventRepository) ListByCampaign(ctx context.Context, campaignID, afterSeq uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, seq, event_type, campaign_id, actor, occurred_at, data
		FROM engine_events
		WHERE run_id = $1 AND campaign_id = $2 AND seq > $3
		ORDER BY seq ASC
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, r.runID, int64(campaignID), int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		var (
			ev         domain.Event
			seq        int64
			typ        string
			campaign   *int64
			actor      string
			occurredAt time.Time
			data       []byte
		)
		if err := rows.Scan(&ev.ID, &seq, &typ, &campaign, &actor, &occurredAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Seq = uint64(seq)
		ev.Type = domain.EventType(typ)
		if campaign != nil {
			ev.CampaignID = uint64(*campaign)
		}
		ev.Actor = domain.Principal(actor)
		ev.OccurredAt = occurredAt
		ev.Data = json.RawMessage(data)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

// Handler adapts the journal into an event bus subscriber
func (r *EventRepository) Handler() events.Handler {
	return func(ctx context.Context, ev domain.Event) error {
		return r.Append(ctx, ev)
	}
}
