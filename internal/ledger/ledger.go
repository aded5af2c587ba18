// Package ledger holds the fungible-unit ledger the campaign engine escrows pledges through.
package ledger

import (
	"context"
	"errors"
	"math/bits"

	"crowdgov/internal/domain"
)

// DefaultExchangeRate is the number of units bought per unit of external currency
const DefaultExchangeRate uint64 = 100_000

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientReserve   = errors.New("insufficient reserve for redemption")
	ErrNotAdmin              = errors.New("only admin can mint")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrOverflow              = errors.New("amount overflows ledger capacity")
	ErrInvalidPrincipal      = errors.New("principal must not be empty")
)

// Ledger is the full token collaborator. The engine only needs Transfer and TransferFrom;
// the rest backs the ledger HTTP endpoints.
type Ledger interface {
	BalanceOf(ctx context.Context, p domain.Principal) (uint64, error)
	Allowance(ctx context.Context, owner, spender domain.Principal) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	Reserve(ctx context.Context) (uint64, error)

	// Approve sets (not adds to) the amount spender may move out of owner's balance
	Approve(ctx context.Context, owner, spender domain.Principal, amount uint64) error
	// Transfer moves amount from one balance to another. A zero amount is a no-op.
	Transfer(ctx context.Context, from, to domain.Principal, amount uint64) error
	// TransferFrom moves amount out of from's balance on behalf of spender, consuming allowance.
	TransferFrom(ctx context.Context, spender, from, to domain.Principal, amount uint64) error

	Mint(ctx context.Context, caller, to domain.Principal, amount uint64) error
	// Exchange credits buyer with payment*rate units and returns the units bought
	Exchange(ctx context.Context, buyer domain.Principal, payment uint64) (uint64, error)
	// Redeem burns units from seller and returns the external payout units/rate
	Redeem(ctx context.Context, seller domain.Principal, units uint64) (uint64, error)
}

// UnitsFor converts an external payment into ledger units at rate
func UnitsFor(payment, rate uint64) (uint64, error) {
	hi, lo := bits.Mul64(payment, rate)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// PayoutFor converts ledger units back into external currency at rate, rounding down
func PayoutFor(units, rate uint64) uint64 {
	if rate == 0 {
		return 0
	}
	return units / rate
}

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func normalizeRate(rate uint64) uint64 {
	if rate == 0 {
		return DefaultExchangeRate
	}
	return rate
}
