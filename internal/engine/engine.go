// Package engine is the campaign funding and member-governance state machine.
//
// Every mutating operation runs under a single write lock in four steps: guards, the
// ledger call (the only side effect that can fail), in-memory mutation, then event
// publication. An operation therefore either fully happens or leaves no trace.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crowdgov/internal/domain"
	"crowdgov/internal/events"
	"crowdgov/pkg/logger"
)

// Clock supplies "now". It is read exactly once per operation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Ledger is the part of the token collaborator the engine moves escrow through
type Ledger interface {
	Transfer(ctx context.Context, from, to domain.Principal, amount uint64) error
	TransferFrom(ctx context.Context, spender, from, to domain.Principal, amount uint64) error
}

// ClaimPolicy decides what a creator needs before releasing proceeds
type ClaimPolicy string

const (
	// ClaimPolicyGoal lets the creator claim once the campaign has ended
	ClaimPolicyGoal ClaimPolicy = "goal"
	// ClaimPolicyVote additionally requires the latest finalised vote to have approved the campaign
	ClaimPolicyVote ClaimPolicy = "vote"
)

// Valid reports whether p is a known policy
func (p ClaimPolicy) Valid() bool {
	return p == ClaimPolicyGoal || p == ClaimPolicyVote
}

var (
	ErrNoAdmin       = errors.New("engine: admin principal is required")
	ErrNoEscrow      = errors.New("engine: escrow principal is required")
	ErrNoLedger      = errors.New("engine: ledger is required")
	ErrUnknownPolicy = errors.New("engine: unknown claim policy")
)

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	Clock             Clock
	ClaimPolicy       ClaimPolicy
	ApprovalThreshold uint64
	MaxDuration       time.Duration
	Publisher         events.Publisher
	Logger            *logger.Logger
}

type set map[domain.Principal]struct{}

func (s set) has(p domain.Principal) bool {
	_, ok := s[p]
	return ok
}

func (s set) sorted() []domain.Principal {
	out := make([]domain.Principal, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Engine struct {
	mu sync.RWMutex

	admin  domain.Principal
	escrow domain.Principal
	ledger Ledger
	pub    events.Publisher
	log    *logger.Logger
	clock  Clock

	policy      ClaimPolicy
	threshold   uint64
	maxDuration time.Duration

	members      set
	pendingJoin  set
	pendingLeave set

	campaigns map[uint64]*domain.Campaign
	count     uint64
	pledges   map[uint64]map[domain.Principal]uint64
	votes     map[uint64]*voteState

	seq uint64
}

// New creates an engine whose admin and escrow principals are fixed for its lifetime
func New(admin, escrow domain.Principal, ledger Ledger, opts Options) (*Engine, error) {
	if admin.IsZero() {
		return nil, ErrNoAdmin
	}
	if escrow.IsZero() {
		return nil, ErrNoEscrow
	}
	if ledger == nil {
		return nil, ErrNoLedger
	}
	if opts.ClaimPolicy == "" {
		opts.ClaimPolicy = ClaimPolicyGoal
	}
	if !opts.ClaimPolicy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, opts.ClaimPolicy)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.ApprovalThreshold == 0 {
		opts.ApprovalThreshold = domain.DefaultApprovalThreshold
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = domain.MaxCampaignDuration
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Tee{}
	}

	return &Engine{
		admin:        admin,
		escrow:       escrow,
		ledger:       ledger,
		pub:          opts.Publisher,
		log:          opts.Logger.Named("engine"),
		clock:        opts.Clock,
		policy:       opts.ClaimPolicy,
		threshold:    opts.ApprovalThreshold,
		maxDuration:  opts.MaxDuration,
		members:      make(set),
		pendingJoin:  make(set),
		pendingLeave: make(set),
		campaigns:    make(map[uint64]*domain.Campaign),
		pledges:      make(map[uint64]map[domain.Principal]uint64),
		votes:        make(map[uint64]*voteState),
	}, nil
}

// Now is the engine's clock reading at unix-second resolution
func (e *Engine) Now() time.Time {
	return e.clock.Now().Truncate(time.Second)
}

// Admin returns the fixed admin principal
func (e *Engine) Admin() domain.Principal {
	return e.admin
}

// Escrow returns the principal that holds pledged funds
func (e *Engine) Escrow() domain.Principal {
	return e.escrow
}

// Policy returns the configured claim policy
func (e *Engine) Policy() ClaimPolicy {
	return e.policy
}

// emit assigns the next sequence number and publishes. Callers hold the write lock.
func (e *Engine) emit(now time.Time, typ domain.EventType, campaignID uint64, actor domain.Principal, data any) {
	e.seq++
	e.pub.Publish(domain.Event{
		ID:         uuid.NewString(),
		Seq:        e.seq,
		Type:       typ,
		CampaignID: campaignID,
		Actor:      actor,
		OccurredAt: now,
		Data:       data,
	})
}

// observe logs the outcome of an operation and passes err through
func (e *Engine) observe(op string, caller domain.Principal, campaignID uint64, err error) error {
	fields := []zap.Field{zap.String("op", op), zap.String("caller", caller.String())}
	if campaignID != 0 {
		fields = append(fields, zap.Uint64("campaign_id", campaignID))
	}
	if err == nil {
		e.log.Info("operation applied", fields...)
		return nil
	}
	if kind, ok := domain.KindOf(err); ok {
		e.log.Debug("operation refused", append(fields, zap.String("kind", string(kind)))...)
	} else {
		e.log.Warn("operation failed", append(fields, zap.Error(err))...)
	}
	return err
}
