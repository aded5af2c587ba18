package domain

import "time"

// EventType names a notification emitted by the engine
type EventType string

const (
	EventMembershipRequested      EventType = "membership.requested"
	EventMembershipLeaveRequested EventType = "membership.leave_requested"
	EventMembershipApproved       EventType = "membership.approved"
	EventMembershipRejected       EventType = "membership.rejected"

	EventCampaignLaunched  EventType = "campaign.launched"
	EventCampaignCancelled EventType = "campaign.cancelled"
	EventCampaignClaimed   EventType = "campaign.claimed"
	EventPledged           EventType = "campaign.pledged"
	EventUnpledged         EventType = "campaign.unpledged"
	EventRefunded          EventType = "campaign.refunded"

	EventVoteStarted  EventType = "vote.started"
	EventVoteReady    EventType = "vote.ready"
	EventVoteCast     EventType = "vote.cast"
	EventVoteApproved EventType = "vote.approved"
	EventVoteRejected EventType = "vote.rejected"
)

// Notification messages carried by membership and vote outcome events
const (
	MsgMembershipRequested = "User has requested DAO membership"
	MsgLeaveRequested      = "User has requested to leave DAO membership"
	MsgMembershipApproved  = "User has been approved as a DAO member"
	MsgMembershipRejected  = "User has been rejected as a DAO member"
	MsgVoteApproved        = "The campaign has been approved for claim."
	MsgVoteRejected        = "The campaign has been rejected for claim."
)

// Event is one notification. Seq is assigned by the engine and strictly increases.
type Event struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Type       EventType `json:"type"`
	CampaignID uint64    `json:"campaign_id,omitempty"`
	Actor      Principal `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// MembershipRequested / LeaveRequested payload
type MembershipRequestData struct {
	User    Principal `json:"user"`
	Message string    `json:"message"`
}

// MembershipApproved / MembershipRejected payload
type MembershipDecisionData struct {
	User     Principal `json:"user"`
	Approved bool      `json:"approved"`
	Message  string    `json:"message"`
}

// CampaignLaunchedData carries the full campaign snapshot including its id
type CampaignLaunchedData struct {
	Campaign Campaign `json:"campaign"`
}

// CampaignCancelledData payload
type CampaignCancelledData struct {
	Cancelled bool `json:"cancelled"`
}

// CampaignClaimedData payload
type CampaignClaimedData struct {
	Target  Principal `json:"target"`
	Amount  uint64    `json:"amount"`
	Claimed bool      `json:"claimed"`
}

// PledgeData is carried by pledge and unpledge events
type PledgeData struct {
	Contributor  Principal `json:"contributor"`
	Amount       uint64    `json:"amount"`
	TotalPledged uint64    `json:"total_pledged"`
}

// RefundData payload
type RefundData struct {
	Contributor Principal `json:"contributor"`
	Amount      uint64    `json:"amount"`
}

// VoteStartedData payload
type VoteStartedData struct {
	Goal        uint64 `json:"goal"`
	TotalAmount uint64 `json:"total_amount"`
}

// VoteReadyData payload
type VoteReadyData struct {
	Yes        uint64 `json:"yes"`
	No         uint64 `json:"no"`
	InProgress bool   `json:"in_progress"`
}

// VoteCastData payload
type VoteCastData struct {
	Voter Principal `json:"voter"`
	Agree bool      `json:"agree"`
}

// VoteEndedData is carried by the approved and rejected outcome events
type VoteEndedData struct {
	AgreePercentage uint64 `json:"agree_percentage"`
	Message         string `json:"message"`
}
