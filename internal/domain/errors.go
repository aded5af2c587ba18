package domain

import "errors"

// Kind classifies why an operation was refused
type Kind string

const (
	// Authorization
	KindNotAdmin   Kind = "not_admin"
	KindNotCreator Kind = "not_creator"
	KindNotMember  Kind = "not_member"

	// Temporal / lifecycle
	KindNotStarted       Kind = "not_started"
	KindEnded            Kind = "ended"
	KindAlreadyStarted   Kind = "already_started"
	KindNotEnded         Kind = "not_ended"
	KindInvalidStart     Kind = "invalid_start"
	KindInvalidWindow    Kind = "invalid_window"
	KindDurationExceeded Kind = "duration_exceeded"
	KindNotInProgress    Kind = "not_in_progress"
	KindNotApproved      Kind = "not_approved"

	// Idempotency
	KindAlreadyClaimed Kind = "already_claimed"
	KindAlreadyVoted   Kind = "already_voted"
	KindVoteInProgress Kind = "vote_in_progress"
	KindAlreadyMember  Kind = "already_member"

	// Input validity
	KindZeroAmount         Kind = "zero_amount"
	KindNotFound           Kind = "not_found"
	KindInsufficientPledge Kind = "insufficient_pledge"
)

// Group is the cause family a Kind belongs to
type Group string

const (
	GroupAuthorization Group = "authorization"
	GroupLifecycle     Group = "lifecycle"
	GroupIdempotency   Group = "idempotency"
	GroupInput         Group = "input"
)

// Group returns the cause family of k
func (k Kind) Group() Group {
	switch k {
	case KindNotAdmin, KindNotCreator, KindNotMember:
		return GroupAuthorization
	case KindAlreadyClaimed, KindAlreadyVoted, KindVoteInProgress, KindAlreadyMember:
		return GroupIdempotency
	case KindZeroAmount, KindNotFound, KindInsufficientPledge:
		return GroupInput
	default:
		return GroupLifecycle
	}
}

// Error is a refused engine operation. Two errors match under errors.Is when their
// kinds are equal, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotAdmin   = &Error{Kind: KindNotAdmin, Message: "only admin can perform this action"}
	ErrNotCreator = &Error{Kind: KindNotCreator, Message: "not creator"}
	ErrNotMember  = &Error{Kind: KindNotMember, Message: "only DAO members can perform this action"}

	ErrNotStarted       = &Error{Kind: KindNotStarted, Message: "not started"}
	ErrEnded            = &Error{Kind: KindEnded, Message: "ended"}
	ErrAlreadyStarted   = &Error{Kind: KindAlreadyStarted, Message: "started"}
	ErrNotEnded         = &Error{Kind: KindNotEnded, Message: "not ended"}
	ErrInvalidStart     = &Error{Kind: KindInvalidStart, Message: "start at < now"}
	ErrInvalidWindow    = &Error{Kind: KindInvalidWindow, Message: "end at < start at"}
	ErrDurationExceeded = &Error{Kind: KindDurationExceeded, Message: "end at > max duration"}
	ErrNotInProgress    = &Error{Kind: KindNotInProgress, Message: "no vote is in progress for this campaign"}
	ErrNotApproved      = &Error{Kind: KindNotApproved, Message: "campaign has not been approved for claim"}

	ErrAlreadyClaimed = &Error{Kind: KindAlreadyClaimed, Message: "claimed"}
	ErrAlreadyVoted   = &Error{Kind: KindAlreadyVoted, Message: "you have already voted"}
	ErrVoteInProgress = &Error{Kind: KindVoteInProgress, Message: "a vote is already in progress for this campaign"}
	ErrAlreadyMember  = &Error{Kind: KindAlreadyMember, Message: "user is already a DAO member"}

	ErrZeroAmount         = &Error{Kind: KindZeroAmount, Message: "amount must be greater than zero"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInsufficientPledge = &Error{Kind: KindInsufficientPledge, Message: "amount exceeds pledged balance"}
)

// KindOf extracts the kind of a (possibly wrapped) engine error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
