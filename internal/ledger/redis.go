package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"crowdgov/internal/domain"
	"crowdgov/pkg/redis"
)

// MaxRedisAmount bounds every stored amount so Lua number arithmetic stays exact
const MaxRedisAmount uint64 = 1 << 53

// script status codes
const (
	statusOK                  = 0
	statusInsufficientBalance = -1
	statusInsufficientAllow   = -2
	statusInsufficientReserve = -3
	statusOverflow            = -4
)

// KEYS: balances. ARGV: from, to, amount, -amount, max
var transferScript = goredis.NewScript(`
local amount = tonumber(ARGV[3])
local bal = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if bal < amount then return -1 end
if ARGV[1] == ARGV[2] then return 0 end
local dest = tonumber(redis.call('HGET', KEYS[1], ARGV[2]) or '0')
if dest > tonumber(ARGV[5]) - amount then return -4 end
redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[4])
redis.call('HINCRBY', KEYS[1], ARGV[2], ARGV[3])
return 0
`)

// KEYS: balances, allowances. ARGV: from, to, amount, -amount, allowance field, max
var transferFromScript = goredis.NewScript(`
local amount = tonumber(ARGV[3])
local allowed = tonumber(redis.call('HGET', KEYS[2], ARGV[5]) or '0')
if allowed < amount then return -2 end
local bal = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if bal < amount then return -1 end
if ARGV[1] ~= ARGV[2] then
  local dest = tonumber(redis.call('HGET', KEYS[1], ARGV[2]) or '0')
  if dest > tonumber(ARGV[6]) - amount then return -4 end
  redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[4])
  redis.call('HINCRBY', KEYS[1], ARGV[2], ARGV[3])
end
if allowed == amount then
  redis.call('HDEL', KEYS[2], ARGV[5])
else
  redis.call('HINCRBY', KEYS[2], ARGV[5], ARGV[4])
end
return 0
`)

// KEYS: balances, supply. ARGV: to, amount, max
var mintScript = goredis.NewScript(`
local amount = tonumber(ARGV[2])
local supply = tonumber(redis.call('GET', KEYS[2]) or '0')
if supply > tonumber(ARGV[3]) - amount then return -4 end
redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
redis.call('INCRBY', KEYS[2], ARGV[2])
return 0
`)

// KEYS: balances, supply, reserve. ARGV: buyer, units, payment, max
var exchangeScript = goredis.NewScript(`
local supply = tonumber(redis.call('GET', KEYS[2]) or '0')
local reserve = tonumber(redis.call('GET', KEYS[3]) or '0')
local max = tonumber(ARGV[4])
if supply > max - tonumber(ARGV[2]) then return -4 end
if reserve > max - tonumber(ARGV[3]) then return -4 end
redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
redis.call('INCRBY', KEYS[2], ARGV[2])
redis.call('INCRBY', KEYS[3], ARGV[3])
return 0
`)

// KEYS: balances, supply, reserve. ARGV: seller, units, -units, payout
var redeemScript = goredis.NewScript(`
local bal = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if bal < tonumber(ARGV[2]) then return -1 end
local reserve = tonumber(redis.call('GET', KEYS[3]) or '0')
if reserve < tonumber(ARGV[4]) then return -3 end
redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[3])
redis.call('DECRBY', KEYS[2], ARGV[2])
redis.call('DECRBY', KEYS[3], ARGV[4])
return 0
`)

// Redis is a ledger stored in Redis hashes. Every mutation is a single Lua script so
// guards and writes are atomic with respect to other clients.
type Redis struct {
	client *redis.Client
	admin  domain.Principal
	rate   uint64
}

var _ Ledger = (*Redis)(nil)

// NewRedis creates a Redis-backed ledger. A zero rate selects DefaultExchangeRate.
func NewRedis(client *redis.Client, admin domain.Principal, rate uint64) *Redis {
	return &Redis{client: client, admin: admin, rate: normalizeRate(rate)}
}

func (r *Redis) BalanceOf(ctx context.Context, p domain.Principal) (uint64, error) {
	return r.hashAmount(ctx, r.client.KeyBuilder.KeyLedgerBalances(), p.String())
}

func (r *Redis) Allowance(ctx context.Context, owner, spender domain.Principal) (uint64, error) {
	return r.hashAmount(ctx, r.client.KeyBuilder.KeyLedgerAllowances(), allowanceField(owner, spender))
}

func (r *Redis) TotalSupply(ctx context.Context) (uint64, error) {
	return r.amount(ctx, r.client.KeyBuilder.KeyLedgerSupply())
}

func (r *Redis) Reserve(ctx context.Context) (uint64, error) {
	return r.amount(ctx, r.client.KeyBuilder.KeyLedgerReserve())
}

func (r *Redis) Approve(ctx context.Context, owner, spender domain.Principal, amount uint64) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount > MaxRedisAmount {
		return ErrOverflow
	}
	key := r.client.KeyBuilder.KeyLedgerAllowances()
	field := allowanceField(owner, spender)
	if amount == 0 {
		return r.client.HDel(ctx, key, field)
	}
	return r.client.HSet(ctx, key, field, strconv.FormatUint(amount, 10))
}

func (r *Redis) Transfer(ctx context.Context, from, to domain.Principal, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount == 0 {
		return nil
	}
	if amount > MaxRedisAmount {
		return ErrOverflow
	}
	return r.run(ctx, transferScript,
		[]string{r.client.KeyBuilder.KeyLedgerBalances()},
		from.String(), to.String(), formatAmount(amount), "-"+formatAmount(amount), formatAmount(MaxRedisAmount))
}

func (r *Redis) TransferFrom(ctx context.Context, spender, from, to domain.Principal, amount uint64) error {
	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount == 0 {
		return nil
	}
	if amount > MaxRedisAmount {
		return ErrOverflow
	}
	return r.run(ctx, transferFromScript,
		[]string{r.client.KeyBuilder.KeyLedgerBalances(), r.client.KeyBuilder.KeyLedgerAllowances()},
		from.String(), to.String(), formatAmount(amount), "-"+formatAmount(amount),
		allowanceField(from, spender), formatAmount(MaxRedisAmount))
}

func (r *Redis) Mint(ctx context.Context, caller, to domain.Principal, amount uint64) error {
	if caller != r.admin || r.admin.IsZero() {
		return ErrNotAdmin
	}
	if to.IsZero() {
		return ErrInvalidPrincipal
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount > MaxRedisAmount {
		return ErrOverflow
	}
	return r.run(ctx, mintScript,
		[]string{r.client.KeyBuilder.KeyLedgerBalances(), r.client.KeyBuilder.KeyLedgerSupply()},
		to.String(), formatAmount(amount), formatAmount(MaxRedisAmount))
}

func (r *Redis) Exchange(ctx context.Context, buyer domain.Principal, payment uint64) (uint64, error) {
	if buyer.IsZero() {
		return 0, ErrInvalidPrincipal
	}
	if payment == 0 {
		return 0, ErrInvalidAmount
	}
	units, err := UnitsFor(payment, r.rate)
	if err != nil {
		return 0, err
	}
	if units > MaxRedisAmount {
		return 0, ErrOverflow
	}
	err = r.run(ctx, exchangeScript,
		[]string{r.client.KeyBuilder.KeyLedgerBalances(), r.client.KeyBuilder.KeyLedgerSupply(), r.client.KeyBuilder.KeyLedgerReserve()},
		buyer.String(), formatAmount(units), formatAmount(payment), formatAmount(MaxRedisAmount))
	if err != nil {
		return 0, err
	}
	return units, nil
}

func (r *Redis) Redeem(ctx context.Context, seller domain.Principal, units uint64) (uint64, error) {
	if seller.IsZero() {
		return 0, ErrInvalidPrincipal
	}
	payout := PayoutFor(units, r.rate)
	if payout == 0 {
		return 0, ErrInvalidAmount
	}
	if units > MaxRedisAmount {
		return 0, ErrInsufficientBalance
	}
	err := r.run(ctx, redeemScript,
		[]string{r.client.KeyBuilder.KeyLedgerBalances(), r.client.KeyBuilder.KeyLedgerSupply(), r.client.KeyBuilder.KeyLedgerReserve()},
		seller.String(), formatAmount(units), "-"+formatAmount(units), formatAmount(payout))
	if err != nil {
		return 0, err
	}
	return payout, nil
}

func (r *Redis) run(ctx context.Context, script *goredis.Script, keys []string, args ...interface{}) error {
	res, err := r.client.RunScript(ctx, script, keys, args...)
	if err != nil {
		return fmt.Errorf("ledger script failed: %w", err)
	}
	code, ok := res.(int64)
	if !ok {
		return fmt.Errorf("ledger script returned %T", res)
	}
	switch code {
	case statusOK:
		return nil
	case statusInsufficientBalance:
		return ErrInsufficientBalance
	case statusInsufficientAllow:
		return ErrInsufficientAllowance
	case statusInsufficientReserve:
		return ErrInsufficientReserve
	case statusOverflow:
		return ErrOverflow
	default:
		return fmt.Errorf("ledger script returned unknown status %d", code)
	}
}

func (r *Redis) hashAmount(ctx context.Context, key, field string) (uint64, error) {
	v, err := r.client.HGet(ctx, key, field)
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseAmount(v)
}

func (r *Redis) amount(ctx context.Context, key string) (uint64, error) {
	v, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseAmount(v)
}

func allowanceField(owner, spender domain.Principal) string {
	return owner.String() + "|" + spender.String()
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt ledger amount %q: %w", v, err)
	}
	return n, nil
}
