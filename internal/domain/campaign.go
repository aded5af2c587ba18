package domain

import "time"

// MaxCampaignDuration is the longest window a campaign may be launched with (90 days)
const MaxCampaignDuration = 90 * 24 * time.Hour

// CampaignStatus is a read-side summary of where a campaign is in its lifecycle
type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "pending"   // before startAt
	CampaignStatusActive    CampaignStatus = "active"    // accepting pledges
	CampaignStatusEnded     CampaignStatus = "ended"     // window closed or goal reached
	CampaignStatusClaimed   CampaignStatus = "claimed"   // proceeds released to the target
	CampaignStatusCancelled CampaignStatus = "cancelled" // withdrawn by its creator before start
)

// Campaign represents a time-boxed fundraising campaign
type Campaign struct {
	ID          uint64    `json:"id"`
	Creator     Principal `json:"creator"`
	Target      Principal `json:"target"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Goal        uint64    `json:"goal"`
	Pledged     uint64    `json:"pledged"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Claimed     bool      `json:"claimed"`
	Cancelled   bool      `json:"cancelled"`
}

// Started reports whether pledging has opened at now
func (c *Campaign) Started(now time.Time) bool {
	return !now.Before(c.StartAt)
}

// GoalReached reports whether the live pledges cover the goal
func (c *Campaign) GoalReached() bool {
	return c.Pledged >= c.Goal
}

// Ended is the derived end predicate: cancelled, past endAt, or goal reached.
func (c *Campaign) Ended(now time.Time) bool {
	return c.Cancelled || !now.Before(c.EndAt) || c.GoalReached()
}

// Status summarises the campaign at now
func (c *Campaign) Status(now time.Time) CampaignStatus {
	switch {
	case c.Cancelled:
		return CampaignStatusCancelled
	case c.Claimed:
		return CampaignStatusClaimed
	case c.Ended(now):
		return CampaignStatusEnded
	case c.Started(now):
		return CampaignStatusActive
	default:
		return CampaignStatusPending
	}
}

// LaunchInput carries the caller-supplied fields of a new campaign
type LaunchInput struct {
	Target      Principal
	Title       string
	Description string
	Goal        uint64
	StartAt     time.Time
	EndAt       time.Time
}

// Pledge is one contributor's live escrowed amount for a campaign
type Pledge struct {
	CampaignID  uint64    `json:"campaign_id"`
	Contributor Principal `json:"contributor"`
	Amount      uint64    `json:"amount"`
}
