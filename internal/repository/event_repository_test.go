package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdgov/internal/domain"
)

const (
	runA = "0b6f1c9e-1111-4a3e-9a51-0d5c1a4b9e21"
	runB = "0b6f1c9e-2222-4a3e-9a51-0d5c1a4b9e21"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records inserts and answers ListByCampaign queries from them
type fakeDB struct {
	execs   []execCall
	execErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

// Query filters recorded inserts by (run_id, campaign_id, seq > after) with a limit
func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("unexpected args: %v", args)
	}
	runID, campaignID, after, limit := args[0].(string), args[1].(int64), args[2].(int64), args[3].(int)

	var rows [][]any
	for _, c := range f.execs {
		campaign := c.args[3].(*int64)
		if c.args[7] != runID || campaign == nil || *campaign != campaignID || c.args[1].(int64) <= after {
			continue
		}
		rows = append(rows, []any{c.args[0], c.args[1], c.args[2], campaign, c.args[4], c.args[5], c.args[6]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][1].(int64) < rows[j][1].(int64) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return &fakeRows{rows: rows, pos: -1}, nil
}

type fakeRows struct {
	pgx.Rows
	rows [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*int64) = row[1].(int64)
	*dest[2].(*string) = row[2].(string)
	*dest[3].(**int64) = row[3].(*int64)
	*dest[4].(*string) = row[4].(string)
	*dest[5].(*time.Time) = row[5].(time.Time)
	*dest[6].(*[]byte) = row[6].([]byte)
	return nil
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() {}

func pledged(id string, seq, campaignID uint64, amount uint64) domain.Event {
	return domain.Event{
		ID:         id,
		Seq:        seq,
		Type:       domain.EventPledged,
		CampaignID: campaignID,
		Actor:      "alice",
		OccurredAt: time.Unix(1_700_000_000, 0).UTC(),
		Data:       domain.PledgeData{Contributor: "alice", Amount: amount, TotalPledged: amount},
	}
}

func TestEventRepository_Append(t *testing.T) {
	db := &fakeDB{}
	repo := NewEventRepository(db, runA)
	at := time.Unix(1_700_000_000, 0).UTC()

	ev := domain.Event{
		ID:         "8c1f6f3e-7f4a-4d0c-9a51-0d5c1a4b9e21",
		Seq:        3,
		Type:       domain.EventPledged,
		CampaignID: 1,
		Actor:      "alice",
		OccurredAt: at,
		Data:       domain.PledgeData{Contributor: "alice", Amount: 10, TotalPledged: 10},
	}
	require.NoError(t, repo.Append(context.Background(), ev))
	require.Len(t, db.execs, 1)

	args := db.execs[0].args
	assert.Equal(t, ev.ID, args[0])
	assert.Equal(t, int64(3), args[1])
	assert.Equal(t, "campaign.pledged", args[2])
	if assert.NotNil(t, args[3]) {
		assert.Equal(t, int64(1), *(args[3].(*int64)))
	}
	assert.Equal(t, "alice", args[4])
	assert.Equal(t, at, args[5])
	assert.Equal(t, runA, args[7])

	var data map[string]any
	require.NoError(t, json.Unmarshal(args[6].([]byte), &data))
	assert.Equal(t, "alice", data["contributor"])
	assert.EqualValues(t, 10, data["total_pledged"])
}

func TestEventRepository_AppendMembershipEventHasNoCampaign(t *testing.T) {
	db := &fakeDB{}
	repo := NewEventRepository(db, runA)

	err := repo.Handler()(context.Background(), domain.Event{
		ID:   "f7f1e3d2-0000-4000-8000-000000000001",
		Seq:  1,
		Type: domain.EventMembershipRequested,
		Data: domain.MembershipRequestData{User: "bob", Message: domain.MsgMembershipRequested},
	})
	require.NoError(t, err)
	assert.Nil(t, db.execs[0].args[3].(*int64))
}

func TestEventRepository_AppendError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}
	repo := NewEventRepository(db, runA)

	err := repo.Append(context.Background(), domain.Event{Seq: 9, Data: struct{}{}})
	assert.ErrorContains(t, err, "failed to append event 9")
}

func TestEventRepository_AppendUnencodable(t *testing.T) {
	repo := NewEventRepository(&fakeDB{}, runA)

	err := repo.Append(context.Background(), domain.Event{Seq: 2, Data: make(chan int)})
	assert.ErrorContains(t, err, "failed to encode event 2")
}

func TestEventRepository_ListByCampaignIsScopedToRun(t *testing.T) {
	db := &fakeDB{}
	ctx := context.Background()

	// a previous process journaled campaign 1 with seqs 1..3
	previous := NewEventRepository(db, runA)
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, previous.Append(ctx, pledged(fmt.Sprintf("a-%d", seq), seq, 1, 100*seq)))
	}

	// after a restart campaign 1 is a different campaign and seqs start over
	current := NewEventRepository(db, runB)
	require.NoError(t, current.Append(ctx, pledged("b-1", 1, 1, 7)))
	require.NoError(t, current.Append(ctx, pledged("b-2", 2, 2, 9)))
	require.NoError(t, current.Append(ctx, pledged("b-3", 3, 1, 8)))

	evs, err := current.ListByCampaign(ctx, 1, 0, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(evs))
	for _, ev := range evs {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"b-1", "b-3"}, ids)

	evs, err = current.ListByCampaign(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "b-3", evs[0].ID)
	assert.Equal(t, uint64(3), evs[0].Seq)
	assert.Equal(t, domain.EventPledged, evs[0].Type)

	var data domain.PledgeData
	require.NoError(t, json.Unmarshal(evs[0].Data.(json.RawMessage), &data))
	assert.Equal(t, uint64(8), data.Amount)

	evs, err = previous.ListByCampaign(ctx, 1, 0, 2)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "a-1", evs[0].ID)
	assert.Equal(t, "a-2", evs[1].ID)
}
