package engine

import (
	"context"
	"fmt"
	"sort"

	"crowdgov/internal/domain"
)

// Launch registers a new campaign created by caller. An empty target defaults to the creator.
func (e *Engine) Launch(_ context.Context, caller domain.Principal, in domain.LaunchInput) (domain.Campaign, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	switch {
	case in.StartAt.Before(now):
		return domain.Campaign{}, e.observe("launch", caller, 0, domain.ErrInvalidStart)
	case in.EndAt.Before(in.StartAt):
		return domain.Campaign{}, e.observe("launch", caller, 0, domain.ErrInvalidWindow)
	case in.EndAt.Sub(in.StartAt) > e.maxDuration:
		return domain.Campaign{}, e.observe("launch", caller, 0, domain.ErrDurationExceeded)
	case in.Goal == 0:
		return domain.Campaign{}, e.observe("launch", caller, 0, domain.ErrZeroAmount)
	}

	target := in.Target
	if target.IsZero() {
		target = caller
	}

	e.count++
	c := &domain.Campaign{
		ID:          e.count,
		Creator:     caller,
		Target:      target,
		Title:       in.Title,
		Description: in.Description,
		Goal:        in.Goal,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
	}
	e.campaigns[c.ID] = c
	e.pledges[c.ID] = make(map[domain.Principal]uint64)

	e.emit(now, domain.EventCampaignLaunched, c.ID, caller, domain.CampaignLaunchedData{Campaign: *c})
	return *c, e.observe("launch", caller, c.ID, nil)
}

// Cancel withdraws a campaign that has not started yet. The campaign is afterwards
// observed as not found.
func (e *Engine) Cancel(_ context.Context, caller domain.Principal, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	c, err := e.live(id)
	if err != nil {
		return e.observe("cancel", caller, id, err)
	}
	if c.Creator != caller {
		return e.observe("cancel", caller, id, domain.ErrNotCreator)
	}
	if c.Started(now) {
		return e.observe("cancel", caller, id, domain.ErrAlreadyStarted)
	}

	c.Creator = domain.NoPrincipal
	c.Cancelled = true
	e.emit(now, domain.EventCampaignCancelled, id, caller, domain.CampaignCancelledData{Cancelled: true})
	return e.observe("cancel", caller, id, nil)
}

// Claim releases the escrowed pledges of an ended campaign to its target
func (e *Engine) Claim(ctx context.Context, caller domain.Principal, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	c, err := e.live(id)
	if err != nil {
		return e.observe("claim", caller, id, err)
	}
	if c.Creator != caller {
		return e.observe("claim", caller, id, domain.ErrNotCreator)
	}
	if !c.Ended(now) {
		return e.observe("claim", caller, id, domain.ErrNotEnded)
	}
	if c.Claimed {
		return e.observe("claim", caller, id, domain.ErrAlreadyClaimed)
	}
	if e.policy == ClaimPolicyVote {
		// a vote in progress supersedes any earlier approval
		if v, ok := e.votes[id]; !ok || v.inProgress || v.outcome != domain.VoteOutcomeApproved {
			return e.observe("claim", caller, id, domain.ErrNotApproved)
		}
	}

	if c.Pledged > 0 {
		if err := e.ledger.Transfer(ctx, e.escrow, c.Target, c.Pledged); err != nil {
			return e.observe("claim", caller, id, fmt.Errorf("release escrow: %w", err))
		}
	}

	c.Claimed = true
	e.emit(now, domain.EventCampaignClaimed, id, caller, domain.CampaignClaimedData{
		Target:  c.Target,
		Amount:  c.Pledged,
		Claimed: true,
	})
	return e.observe("claim", caller, id, nil)
}

// Campaign returns a snapshot of a live (not cancelled) campaign
func (e *Engine) Campaign(id uint64) (domain.Campaign, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.live(id)
	if err != nil {
		return domain.Campaign{}, err
	}
	return *c, nil
}

// Campaigns lists live campaigns in id order
func (e *Engine) Campaigns() []domain.Campaign {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Campaign, 0, len(e.campaigns))
	for _, c := range e.campaigns {
		if !c.Cancelled {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count is the number of campaigns ever launched, cancelled ones included
func (e *Engine) Count() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.count
}

// IsEnded evaluates the end predicate now. Cancelled campaigns are ended.
func (e *Engine) IsEnded(id uint64) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.campaigns[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return c.Ended(e.Now()), nil
}

// live looks up a campaign that exists and has not been cancelled
func (e *Engine) live(id uint64) (*domain.Campaign, error) {
	c, ok := e.campaigns[id]
	if !ok || c.Cancelled {
		return nil, domain.ErrNotFound
	}
	return c, nil
}
