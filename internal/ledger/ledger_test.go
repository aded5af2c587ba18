package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crowdgov/internal/domain"
	"crowdgov/pkg/redis"
)

const (
	admin  domain.Principal = "admin"
	alice  domain.Principal = "alice"
	bob    domain.Principal = "bob"
	escrow domain.Principal = "escrow"
)

func newRedisLedger(t *testing.T) Ledger {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, admin, 0)
}

func newMemoryLedger(t *testing.T) Ledger {
	return NewMemory(admin, 0)
}

// adapters runs every contract test against both implementations
var adapters = []struct {
	name string
	new  func(t *testing.T) Ledger
}{
	{name: "memory", new: newMemoryLedger},
	{name: "redis", new: newRedisLedger},
}

func balance(t *testing.T, l Ledger, p domain.Principal) uint64 {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), p)
	require.NoError(t, err)
	return b
}

func TestLedger_Mint(t *testing.T) {
	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			ctx := context.Background()
			l := a.new(t)

			require.NoError(t, l.Mint(ctx, admin, alice, 500))
			assert.Equal(t, uint64(500), balance(t, l, alice))

			supply, err := l.TotalSupply(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(500), supply)

			assert.ErrorIs(t, l.Mint(ctx, alice, alice, 1), ErrNotAdmin)
			assert.ErrorIs(t, l.Mint(ctx, admin, alice, 0), ErrInvalidAmount)
			assert.Equal(t, uint64(500), balance(t, l, alice))
		})
	}
}

func TestLedger_Transfer(t *testing.T) {
	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			ctx := context.Background()
			l := a.new(t)
			require.NoError(t, l.Mint(ctx, admin, alice, 100))

			tests := []struct {
				name    string
				from    domain.Principal
				to      domain.Principal
				amount  uint64
				wantErr error
				alice   uint64
				bob     uint64
			}{
				{name: "Moves funds", from: alice, to: bob, amount: 40, alice: 60, bob: 40},
				{name: "Zero is a no-op", from: alice, to: bob, amount: 0, alice: 60, bob: 40},
				{name: "Self transfer keeps balance", from: alice, to: alice, amount: 60, alice: 60, bob: 40},
				{name: "Overdraft is refused", from: alice, to: bob, amount: 61, wantErr: ErrInsufficientBalance, alice: 60, bob: 40},
				{name: "Empty principal is refused", from: alice, to: domain.NoPrincipal, amount: 1, wantErr: ErrInvalidPrincipal, alice: 60, bob: 40},
			}

			for _, tt := range tests {
				err := l.Transfer(ctx, tt.from, tt.to, tt.amount)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr, tt.name)
				} else {
					assert.NoError(t, err, tt.name)
				}
				assert.Equal(t, tt.alice, balance(t, l, alice), tt.name)
				assert.Equal(t, tt.bob, balance(t, l, bob), tt.name)
			}
		})
	}
}

func TestLedger_TransferFrom(t *testing.T) {
	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			ctx := context.Background()
			l := a.new(t)
			require.NoError(t, l.Mint(ctx, admin, alice, 100))

			// No allowance yet
			err := l.TransferFrom(ctx, escrow, alice, escrow, 10)
			assert.ErrorIs(t, err, ErrInsufficientAllowance)

			require.NoError(t, l.Approve(ctx, alice, escrow, 150))
			allowed, err := l.Allowance(ctx, alice, escrow)
			require.NoError(t, err)
			assert.Equal(t, uint64(150), allowed)

			require.NoError(t, l.TransferFrom(ctx, escrow, alice, escrow, 30))
			assert.Equal(t, uint64(70), balance(t, l, alice))
			assert.Equal(t, uint64(30), balance(t, l, escrow))

			allowed, err = l.Allowance(ctx, alice, escrow)
			require.NoError(t, err)
			assert.Equal(t, uint64(120), allowed)

			// Allowance covers it but balance does not; nothing changes
			err = l.TransferFrom(ctx, escrow, alice, escrow, 71)
			assert.ErrorIs(t, err, ErrInsufficientBalance)
			assert.Equal(t, uint64(70), balance(t, l, alice))
			allowed, err = l.Allowance(ctx, alice, escrow)
			require.NoError(t, err)
			assert.Equal(t, uint64(120), allowed)

			// Approve replaces rather than adds
			require.NoError(t, l.Approve(ctx, alice, escrow, 5))
			assert.ErrorIs(t, l.TransferFrom(ctx, escrow, alice, escrow, 6), ErrInsufficientAllowance)
			require.NoError(t, l.TransferFrom(ctx, escrow, alice, escrow, 5))
			allowed, err = l.Allowance(ctx, alice, escrow)
			require.NoError(t, err)
			assert.Zero(t, allowed)
		})
	}
}

func TestLedger_ExchangeAndRedeem(t *testing.T) {
	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			ctx := context.Background()
			l := a.new(t)

			units, err := l.Exchange(ctx, alice, 2)
			require.NoError(t, err)
			assert.Equal(t, uint64(2*DefaultExchangeRate), units)
			assert.Equal(t, units, balance(t, l, alice))

			reserve, err := l.Reserve(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), reserve)

			_, err = l.Exchange(ctx, alice, 0)
			assert.ErrorIs(t, err, ErrInvalidAmount)

			// Less than one currency unit cannot be redeemed
			_, err = l.Redeem(ctx, alice, DefaultExchangeRate-1)
			assert.ErrorIs(t, err, ErrInvalidAmount)

			payout, err := l.Redeem(ctx, alice, DefaultExchangeRate)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), payout)
			assert.Equal(t, uint64(DefaultExchangeRate), balance(t, l, alice))

			supply, err := l.TotalSupply(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(DefaultExchangeRate), supply)

			_, err = l.Redeem(ctx, bob, DefaultExchangeRate)
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		})
	}
}

func TestLedger_RedeemNeedsReserve(t *testing.T) {
	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			ctx := context.Background()
			l := a.new(t)

			// Minted units are not backed by the reserve
			require.NoError(t, l.Mint(ctx, admin, alice, DefaultExchangeRate))
			_, err := l.Redeem(ctx, alice, DefaultExchangeRate)
			assert.ErrorIs(t, err, ErrInsufficientReserve)
			assert.Equal(t, uint64(DefaultExchangeRate), balance(t, l, alice))
		})
	}
}

func TestUnitsFor(t *testing.T) {
	tests := []struct {
		name    string
		payment uint64
		rate    uint64
		want    uint64
		wantErr error
	}{
		{name: "Default rate", payment: 3, rate: DefaultExchangeRate, want: 300_000},
		{name: "Zero payment", payment: 0, rate: DefaultExchangeRate, want: 0},
		{name: "Overflow", payment: math.MaxUint64, rate: 2, wantErr: ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnitsFor(tt.payment, tt.rate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemory_TransferOverflow(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(admin, 1)
	require.NoError(t, l.Mint(ctx, admin, alice, math.MaxUint64))

	// Supply is already at capacity
	assert.ErrorIs(t, l.Mint(ctx, admin, bob, 1), ErrOverflow)
	assert.Equal(t, uint64(0), balance(t, l, bob))
}

func TestRedis_AmountCeiling(t *testing.T) {
	ctx := context.Background()
	l := newRedisLedger(t)

	assert.ErrorIs(t, l.Mint(ctx, admin, alice, MaxRedisAmount+1), ErrOverflow)
	require.NoError(t, l.Mint(ctx, admin, alice, MaxRedisAmount))
	assert.ErrorIs(t, l.Mint(ctx, admin, bob, 1), ErrOverflow)
	assert.Equal(t, MaxRedisAmount, balance(t, l, alice))
}
