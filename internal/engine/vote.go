package engine

import (
	"context"
	"sort"
	"time"

	"crowdgov/internal/domain"
)

type voteState struct {
	inProgress    bool
	goalSnapshot  uint64
	totalSnapshot uint64
	yes, no       uint64
	electorate    set
	hasVoted      set
	startedAt     time.Time

	outcome         domain.VoteOutcome
	agreePercentage uint64
	finalizedAt     *time.Time
}

func (v *voteState) inElectorate(p domain.Principal) bool {
	return v.electorate.has(p)
}

// complete reports whether every electorate member still in members has voted
func (v *voteState) complete(members set) bool {
	for p := range v.electorate {
		if members.has(p) && !v.hasVoted.has(p) {
			return false
		}
	}
	return true
}

// StartVote opens a vote on campaign id. The electorate is the member set at this moment;
// with no members the vote closes at once as rejected with 0%.
func (e *Engine) StartVote(_ context.Context, caller domain.Principal, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	c, err := e.live(id)
	if err != nil {
		return e.observe("start_vote", caller, id, err)
	}
	v, ok := e.votes[id]
	if ok && v.inProgress {
		return e.observe("start_vote", caller, id, domain.ErrVoteInProgress)
	}
	if !ok {
		v = &voteState{outcome: domain.VoteOutcomeNone}
		e.votes[id] = v
	}

	v.inProgress = true
	v.goalSnapshot = c.Goal
	v.totalSnapshot = c.Pledged
	v.yes, v.no = 0, 0
	v.electorate = make(set, len(e.members))
	for p := range e.members {
		v.electorate[p] = struct{}{}
	}
	v.hasVoted = make(set)
	v.startedAt = now

	e.emit(now, domain.EventVoteStarted, id, caller, domain.VoteStartedData{
		Goal:        v.goalSnapshot,
		TotalAmount: v.totalSnapshot,
	})
	e.emit(now, domain.EventVoteReady, id, caller, domain.VoteReadyData{Yes: 0, No: 0, InProgress: true})
	if v.complete(e.members) {
		e.finalize(now, id, v, caller)
	}
	return e.observe("start_vote", caller, id, nil)
}

// Vote records caller's ballot. The last outstanding ballot finalises the vote.
func (e *Engine) Vote(_ context.Context, caller domain.Principal, id uint64, agree bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	if !e.members.has(caller) {
		return e.observe("vote", caller, id, domain.ErrNotMember)
	}
	v, ok := e.votes[id]
	if !ok || !v.inProgress {
		return e.observe("vote", caller, id, domain.ErrNotInProgress)
	}
	if !v.inElectorate(caller) {
		return e.observe("vote", caller, id, domain.ErrNotMember)
	}
	if v.hasVoted.has(caller) {
		return e.observe("vote", caller, id, domain.ErrAlreadyVoted)
	}

	v.hasVoted[caller] = struct{}{}
	if agree {
		v.yes++
	} else {
		v.no++
	}
	e.emit(now, domain.EventVoteCast, id, caller, domain.VoteCastData{Voter: caller, Agree: agree})

	if v.complete(e.members) {
		e.finalize(now, id, v, caller)
	}
	return e.observe("vote", caller, id, nil)
}

// finalize closes v and publishes its outcome. Callers hold the write lock.
func (e *Engine) finalize(now time.Time, id uint64, v *voteState, actor domain.Principal) {
	pct := domain.AgreePercentage(v.yes, v.no)
	v.inProgress = false
	v.agreePercentage = pct
	finalizedAt := now
	v.finalizedAt = &finalizedAt

	if pct >= e.threshold {
		v.outcome = domain.VoteOutcomeApproved
		e.emit(now, domain.EventVoteApproved, id, actor, domain.VoteEndedData{
			AgreePercentage: pct,
			Message:         domain.MsgVoteApproved,
		})
		return
	}
	v.outcome = domain.VoteOutcomeRejected
	e.emit(now, domain.EventVoteRejected, id, actor, domain.VoteEndedData{
		AgreePercentage: pct,
		Message:         domain.MsgVoteRejected,
	})
}

// VoteOf snapshots the vote for campaign id. A campaign that never had a vote started
// reports a zero vote with outcome none.
func (e *Engine) VoteOf(id uint64) (domain.Vote, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.live(id); err != nil {
		return domain.Vote{}, err
	}
	v, ok := e.votes[id]
	if !ok {
		return domain.Vote{
			CampaignID: id,
			Electorate: []domain.Principal{},
			Voted:      []domain.Principal{},
			Outcome:    domain.VoteOutcomeNone,
		}, nil
	}
	out := domain.Vote{
		CampaignID:      id,
		InProgress:      v.inProgress,
		GoalSnapshot:    v.goalSnapshot,
		TotalSnapshot:   v.totalSnapshot,
		Yes:             v.yes,
		No:              v.no,
		Electorate:      v.electorate.sorted(),
		Voted:           v.hasVoted.sorted(),
		Outcome:         v.outcome,
		AgreePercentage: v.agreePercentage,
		StartedAt:       v.startedAt,
	}
	if v.finalizedAt != nil {
		t := *v.finalizedAt
		out.FinalizedAt = &t
	}
	return out, nil
}

// HasVoted reports whether member cast a ballot in the current (or last) vote on id
func (e *Engine) HasVoted(id uint64, member domain.Principal) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.live(id); err != nil {
		return false, err
	}
	v, ok := e.votes[id]
	if !ok {
		return false, nil
	}
	return v.hasVoted.has(member), nil
}

func (e *Engine) sortedVoteIDs() []uint64 {
	ids := make([]uint64, 0, len(e.votes))
	for id := range e.votes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
