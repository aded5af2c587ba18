package ledger

import (
	"context"
	"sync"

	"crowdgov/internal/domain"
)

type allowanceKey struct {
	owner, spender domain.Principal
}

// Memory is an in-process ledger guarded by a single mutex
type Memory struct {
	mu         sync.RWMutex
	admin      domain.Principal
	rate       uint64
	balances   map[domain.Principal]uint64
	allowances map[allowanceKey]uint64
	supply     uint64
	reserve    uint64
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates an empty in-memory ledger. A zero rate selects DefaultExchangeRate.
func NewMemory(admin domain.Principal, rate uint64) *Memory {
	return &Memory{
		admin:      admin,
		rate:       normalizeRate(rate),
		balances:   make(map[domain.Principal]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

func (m *Memory) BalanceOf(_ context.Context, p domain.Principal) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[p], nil
}

func (m *Memory) Allowance(_ context.Context, owner, spender domain.Principal) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allowances[allowanceKey{owner, spender}], nil
}

func (m *Memory) TotalSupply(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supply, nil
}

func (m *Memory) Reserve(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reserve, nil
}

func (m *Memory) Approve(_ context.Context, owner, spender domain.Principal, amount uint64) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrInvalidPrincipal
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount == 0 {
		delete(m.allowances, allowanceKey{owner, spender})
		return nil
	}
	m.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

func (m *Memory) Transfer(_ context.Context, from, to domain.Principal, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(from, to, amount)
}

func (m *Memory) TransferFrom(_ context.Context, spender, from, to domain.Principal, amount uint64) error {
	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := allowanceKey{from, spender}
	allowed := m.allowances[key]
	if allowed < amount {
		return ErrInsufficientAllowance
	}
	if err := m.move(from, to, amount); err != nil {
		return err
	}
	if allowed == amount {
		delete(m.allowances, key)
	} else {
		m.allowances[key] = allowed - amount
	}
	return nil
}

// move must be called with mu held
func (m *Memory) move(from, to domain.Principal, amount uint64) error {
	if m.balances[from] < amount {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	credited, err := addChecked(m.balances[to], amount)
	if err != nil {
		return err
	}
	m.balances[from] -= amount
	m.balances[to] = credited
	return nil
}

func (m *Memory) Mint(_ context.Context, caller, to domain.Principal, amount uint64) error {
	if caller != m.admin || m.admin.IsZero() {
		return ErrNotAdmin
	}
	if to.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit(to, amount)
}

func (m *Memory) Exchange(_ context.Context, buyer domain.Principal, payment uint64) (uint64, error) {
	if buyer.IsZero() {
		return 0, ErrInvalidPrincipal
	}
	if payment == 0 {
		return 0, ErrInvalidAmount
	}
	units, err := UnitsFor(payment, m.rate)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	reserve, err := addChecked(m.reserve, payment)
	if err != nil {
		return 0, err
	}
	if err := m.credit(buyer, units); err != nil {
		return 0, err
	}
	m.reserve = reserve
	return units, nil
}

func (m *Memory) Redeem(_ context.Context, seller domain.Principal, units uint64) (uint64, error) {
	if seller.IsZero() {
		return 0, ErrInvalidPrincipal
	}
	payout := PayoutFor(units, m.rate)
	if payout == 0 {
		return 0, ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[seller] < units {
		return 0, ErrInsufficientBalance
	}
	if m.reserve < payout {
		return 0, ErrInsufficientReserve
	}
	m.balances[seller] -= units
	m.supply -= units
	m.reserve -= payout
	return payout, nil
}

// credit mints amount into to; must be called with mu held
func (m *Memory) credit(to domain.Principal, amount uint64) error {
	supply, err := addChecked(m.supply, amount)
	if err != nil {
		return err
	}
	balance, err := addChecked(m.balances[to], amount)
	if err != nil {
		return err
	}
	m.supply = supply
	m.balances[to] = balance
	return nil
}
