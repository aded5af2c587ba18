package engine

import (
	"context"

	"crowdgov/internal/domain"
)

// RequestMembership queues caller for admin approval. Repeated requests are idempotent.
func (e *Engine) RequestMembership(_ context.Context, caller domain.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	if e.members.has(caller) {
		return e.observe("request_membership", caller, 0, domain.ErrAlreadyMember)
	}

	e.pendingJoin[caller] = struct{}{}
	e.emit(now, domain.EventMembershipRequested, 0, caller, domain.MembershipRequestData{
		User:    caller,
		Message: domain.MsgMembershipRequested,
	})
	return e.observe("request_membership", caller, 0, nil)
}

// RequestLeave records that a member wants to leave. Only the admin can act on it.
func (e *Engine) RequestLeave(_ context.Context, caller domain.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	if !e.members.has(caller) {
		return e.observe("request_leave", caller, 0, domain.ErrNotMember)
	}

	e.pendingLeave[caller] = struct{}{}
	e.emit(now, domain.EventMembershipLeaveRequested, 0, caller, domain.MembershipRequestData{
		User:    caller,
		Message: domain.MsgLeaveRequested,
	})
	return e.observe("request_leave", caller, 0, nil)
}

// ApproveMembership decides on user's join request. Approving a user with no pending
// request admits them directly; rejecting requires a pending request.
func (e *Engine) ApproveMembership(_ context.Context, caller, user domain.Principal, approve bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	if caller != e.admin {
		return e.observe("approve_membership", caller, 0, domain.ErrNotAdmin)
	}

	if approve {
		if e.members.has(user) {
			return e.observe("approve_membership", caller, 0, domain.ErrAlreadyMember)
		}
		delete(e.pendingJoin, user)
		e.members[user] = struct{}{}
		e.emit(now, domain.EventMembershipApproved, 0, caller, domain.MembershipDecisionData{
			User:     user,
			Approved: true,
			Message:  domain.MsgMembershipApproved,
		})
		return e.observe("approve_membership", caller, 0, nil)
	}

	if !e.pendingJoin.has(user) {
		return e.observe("approve_membership", caller, 0, domain.ErrNotFound)
	}
	delete(e.pendingJoin, user)
	e.emit(now, domain.EventMembershipRejected, 0, caller, domain.MembershipDecisionData{
		User:     user,
		Approved: false,
		Message:  domain.MsgMembershipRejected,
	})
	return e.observe("approve_membership", caller, 0, nil)
}

// RejectMembership revokes an existing member. Any vote waiting only on that member
// finalises immediately.
func (e *Engine) RejectMembership(_ context.Context, caller, user domain.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	if caller != e.admin {
		return e.observe("reject_membership", caller, 0, domain.ErrNotAdmin)
	}
	if !e.members.has(user) {
		return e.observe("reject_membership", caller, 0, domain.ErrNotMember)
	}

	delete(e.members, user)
	delete(e.pendingLeave, user)
	e.emit(now, domain.EventMembershipRejected, 0, caller, domain.MembershipDecisionData{
		User:     user,
		Approved: false,
		Message:  domain.MsgMembershipRejected,
	})

	for _, id := range e.sortedVoteIDs() {
		v := e.votes[id]
		if v.inProgress && v.inElectorate(user) && v.complete(e.members) {
			e.finalize(now, id, v, caller)
		}
	}
	return e.observe("reject_membership", caller, 0, nil)
}

// IsMember reports whether p is an approved member
func (e *Engine) IsMember(p domain.Principal) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.members.has(p)
}

func (e *Engine) Members() []domain.Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.members.sorted()
}

func (e *Engine) PendingJoins() []domain.Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pendingJoin.sorted()
}

func (e *Engine) PendingLeaves() []domain.Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pendingLeave.sorted()
}

// Membership describes p's standing in the registry
func (e *Engine) Membership(p domain.Principal) domain.Membership {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.Membership{
		Principal:    p,
		Member:       e.members.has(p),
		PendingJoin:  e.pendingJoin.has(p),
		PendingLeave: e.pendingLeave.has(p),
		Admin:        p == e.admin,
	}
}

// Roster snapshots the whole registry
func (e *Engine) Roster() domain.Roster {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.Roster{
		Admin:         e.admin,
		Members:       e.members.sorted(),
		PendingJoins:  e.pendingJoin.sorted(),
		PendingLeaves: e.pendingLeave.sorted(),
	}
}
