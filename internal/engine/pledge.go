package engine

import (
	"context"
	"fmt"
	"sort"

	"crowdgov/internal/domain"
	"crowdgov/internal/ledger"
)

// Pledge escrows amount from caller into campaign id. The caller must have approved the
// escrow principal to spend at least amount.
func (e *Engine) Pledge(ctx context.Context, caller domain.Principal, id, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	c, err := e.live(id)
	if err != nil {
		return e.observe("pledge", caller, id, err)
	}
	if !c.Started(now) {
		return e.observe("pledge", caller, id, domain.ErrNotStarted)
	}
	if c.Ended(now) {
		return e.observe("pledge", caller, id, domain.ErrEnded)
	}
	if amount == 0 {
		return e.observe("pledge", caller, id, domain.ErrZeroAmount)
	}
	record := e.pledges[id][caller]
	if record+amount < record || c.Pledged+amount < c.Pledged {
		return e.observe("pledge", caller, id, fmt.Errorf("pledge %d: campaign total: %w", amount, ledger.ErrOverflow))
	}

	if err := e.ledger.TransferFrom(ctx, e.escrow, caller, e.escrow, amount); err != nil {
		return e.observe("pledge", caller, id, fmt.Errorf("escrow pledge: %w", err))
	}

	e.pledges[id][caller] = record + amount
	c.Pledged += amount
	e.emit(now, domain.EventPledged, id, caller, domain.PledgeData{
		Contributor:  caller,
		Amount:       amount,
		TotalPledged: c.Pledged,
	})
	return e.observe("pledge", caller, id, nil)
}

// Unpledge returns part of caller's live pledge while the campaign is still running
func (e *Engine) Unpledge(ctx context.Context, caller domain.Principal, id, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	c, err := e.live(id)
	if err != nil {
		return e.observe("unpledge", caller, id, err)
	}
	if amount == 0 {
		return e.observe("unpledge", caller, id, domain.ErrZeroAmount)
	}
	if c.Ended(now) {
		return e.observe("unpledge", caller, id, domain.ErrEnded)
	}
	record := e.pledges[id][caller]
	if amount > record {
		return e.observe("unpledge", caller, id, domain.ErrInsufficientPledge)
	}

	if err := e.ledger.Transfer(ctx, e.escrow, caller, amount); err != nil {
		return e.observe("unpledge", caller, id, fmt.Errorf("return pledge: %w", err))
	}

	e.setRecord(id, caller, record-amount)
	c.Pledged -= amount
	e.emit(now, domain.EventUnpledged, id, caller, domain.PledgeData{
		Contributor:  caller,
		Amount:       amount,
		TotalPledged: c.Pledged,
	})
	return e.observe("unpledge", caller, id, nil)
}

// Refund returns caller's whole live pledge and reports how much was returned
func (e *Engine) Refund(ctx context.Context, caller domain.Principal, id uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.Now()

	c, err := e.live(id)
	if err != nil {
		return 0, e.observe("refund", caller, id, err)
	}
	if c.Ended(now) {
		return 0, e.observe("refund", caller, id, domain.ErrEnded)
	}
	amount := e.pledges[id][caller]
	if amount == 0 {
		return 0, e.observe("refund", caller, id, domain.ErrZeroAmount)
	}

	if err := e.ledger.Transfer(ctx, e.escrow, caller, amount); err != nil {
		return 0, e.observe("refund", caller, id, fmt.Errorf("refund pledge: %w", err))
	}

	e.setRecord(id, caller, 0)
	c.Pledged -= amount
	e.emit(now, domain.EventRefunded, id, caller, domain.RefundData{
		Contributor: caller,
		Amount:      amount,
	})
	return amount, e.observe("refund", caller, id, nil)
}

// PledgeOf is contributor's live amount for campaign id
func (e *Engine) PledgeOf(id uint64, contributor domain.Principal) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.live(id); err != nil {
		return 0, err
	}
	return e.pledges[id][contributor], nil
}

// Pledges lists the non-zero records of campaign id ordered by contributor
func (e *Engine) Pledges(id uint64) ([]domain.Pledge, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.live(id); err != nil {
		return nil, err
	}
	out := make([]domain.Pledge, 0, len(e.pledges[id]))
	for p, amount := range e.pledges[id] {
		out = append(out, domain.Pledge{CampaignID: id, Contributor: p, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contributor < out[j].Contributor })
	return out, nil
}

func (e *Engine) setRecord(id uint64, p domain.Principal, amount uint64) {
	if amount == 0 {
		delete(e.pledges[id], p)
		return
	}
	e.pledges[id][p] = amount
}
