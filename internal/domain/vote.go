package domain

import "time"

// DefaultApprovalThreshold is the agree percentage at or above which a vote approves a campaign
const DefaultApprovalThreshold = 70

// VoteOutcome is the result of the most recent finalised vote for a campaign
type VoteOutcome string

const (
	VoteOutcomeNone     VoteOutcome = "none"
	VoteOutcomeApproved VoteOutcome = "approved"
	VoteOutcomeRejected VoteOutcome = "rejected"
)

// Vote is a read snapshot of a campaign's vote
type Vote struct {
	CampaignID      uint64      `json:"campaign_id"`
	InProgress      bool        `json:"in_progress"`
	GoalSnapshot    uint64      `json:"goal_snapshot"`
	TotalSnapshot   uint64      `json:"total_snapshot"`
	Yes             uint64      `json:"yes"`
	No              uint64      `json:"no"`
	Electorate      []Principal `json:"electorate"`
	Voted           []Principal `json:"voted"`
	Outcome         VoteOutcome `json:"outcome"`
	AgreePercentage uint64      `json:"agree_percentage"`
	StartedAt       time.Time   `json:"started_at"`
	FinalizedAt     *time.Time  `json:"finalized_at,omitempty"`
}

// AgreePercentage is yes*100/(yes+no) with integer division, 0 when nobody voted.
func AgreePercentage(yes, no uint64) uint64 {
	total := yes + no
	if total == 0 {
		return 0
	}
	return yes * 100 / total
}
