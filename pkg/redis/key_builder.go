package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Ledger key builders
func (kb *KeyBuilder) KeyLedgerBalances() string {
	return kb.BuildKey(KeyLedgerBalances)
}

func (kb *KeyBuilder) KeyLedgerAllowances() string {
	return kb.BuildKey(KeyLedgerAllowances)
}

func (kb *KeyBuilder) KeyLedgerSupply() string {
	return kb.BuildKey(KeyLedgerSupply)
}

func (kb *KeyBuilder) KeyLedgerReserve() string {
	return kb.BuildKey(KeyLedgerReserve)
}

// KeyIdempotency scopes an Idempotency-Key header value to the calling principal
func (kb *KeyBuilder) KeyIdempotency(principal, key string) string {
	return kb.BuildKey(fmt.Sprintf(KeyIdempotency, principal, key))
}
