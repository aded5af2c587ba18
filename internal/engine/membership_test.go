package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdgov/internal/domain"
)

func TestRequestMembership(t *testing.T) {
	f := newFixture(t, ClaimPolicyGoal)
	ctx := context.Background()

	require.NoError(t, f.engine.RequestMembership(ctx, alice))
	require.NoError(t, f.engine.RequestMembership(ctx, alice))
	assert.Equal(t, []domain.Principal{alice}, f.engine.PendingJoins())

	ev := f.last()
	assert.Equal(t, domain.EventMembershipRequested, ev.Type)
	assert.Equal(t, domain.MembershipRequestData{User: alice, Message: domain.MsgMembershipRequested}, ev.Data)

	f.admit(t, alice)
	err := f.engine.RequestMembership(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	assert.Empty(t, f.engine.PendingJoins())
}

func TestApproveMembership(t *testing.T) {
	f := newFixture(t, ClaimPolicyGoal)
	ctx := context.Background()
	require.NoError(t, f.engine.RequestMembership(ctx, alice))
	require.NoError(t, f.engine.RequestMembership(ctx, bob))

	tests := []struct {
		name        string
		caller      domain.Principal
		user        domain.Principal
		approve     bool
		wantErr     error
		wantPending int
		wantEvent   domain.EventType
	}{
		{name: "Non admin is refused", caller: alice, user: alice, approve: true, wantErr: domain.ErrNotAdmin, wantPending: 2},
		{name: "Approve pending user", caller: admin, user: alice, approve: true, wantPending: 1, wantEvent: domain.EventMembershipApproved},
		{name: "Approve twice fails", caller: admin, user: alice, approve: true, wantErr: domain.ErrAlreadyMember, wantPending: 1},
		{name: "Reject pending user", caller: admin, user: bob, approve: false, wantPending: 0, wantEvent: domain.EventMembershipRejected},
		{name: "Reject without request", caller: admin, user: bob, approve: false, wantErr: domain.ErrNotFound, wantPending: 0},
		{name: "Direct admission", caller: admin, user: "carol", approve: true, wantPending: 0, wantEvent: domain.EventMembershipApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.log.Len()
			err := f.engine.ApproveMembership(ctx, tt.caller, tt.user, tt.approve)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, f.log.Len(), "refused operations emit nothing")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantEvent, f.last().Type)
			}
			assert.Len(t, f.engine.PendingJoins(), tt.wantPending)
		})
	}

	assert.Equal(t, []domain.Principal{alice, "carol"}, f.engine.Members())
	assert.False(t, f.engine.IsMember(admin), "admin is never implicitly a member")
}

func TestApproveMembership_Messages(t *testing.T) {
	f := newFixture(t, ClaimPolicyGoal)
	ctx := context.Background()
	require.NoError(t, f.engine.RequestMembership(ctx, alice))
	require.NoError(t, f.engine.RequestMembership(ctx, bob))

	require.NoError(t, f.engine.ApproveMembership(ctx, admin, alice, true))
	assert.Equal(t, domain.MembershipDecisionData{User: alice, Approved: true, Message: domain.MsgMembershipApproved}, f.last().Data)

	require.NoError(t, f.engine.ApproveMembership(ctx, admin, bob, false))
	assert.Equal(t, domain.MembershipDecisionData{User: bob, Approved: false, Message: domain.MsgMembershipRejected}, f.last().Data)
}

func TestRequestLeaveAndRevoke(t *testing.T) {
	f := newFixture(t, ClaimPolicyGoal)
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.RequestLeave(ctx, alice), domain.ErrNotMember)

	f.admit(t, alice, bob)
	require.NoError(t, f.engine.RequestLeave(ctx, alice))
	assert.Equal(t, []domain.Principal{alice}, f.engine.PendingLeaves())
	assert.Equal(t, domain.MsgLeaveRequested, f.last().Data.(domain.MembershipRequestData).Message)

	m := f.engine.Membership(alice)
	assert.True(t, m.Member)
	assert.True(t, m.PendingLeave)
	assert.False(t, m.Admin)

	assert.ErrorIs(t, f.engine.RejectMembership(ctx, bob, alice), domain.ErrNotAdmin)
	assert.ErrorIs(t, f.engine.RejectMembership(ctx, admin, "stranger"), domain.ErrNotMember)

	require.NoError(t, f.engine.RejectMembership(ctx, admin, alice))
	assert.False(t, f.engine.IsMember(alice))
	assert.Empty(t, f.engine.PendingLeaves())
	assert.Equal(t, domain.EventMembershipRejected, f.last().Type)

	// Revoking a member without a leave request leaves pending-leave alone
	require.NoError(t, f.engine.RejectMembership(ctx, admin, bob))
	roster := f.engine.Roster()
	assert.Equal(t, admin, roster.Admin)
	assert.Empty(t, roster.Members)
	assert.Empty(t, roster.PendingLeaves)
}
