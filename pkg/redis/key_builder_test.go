package redis

import (
	"testing"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			if kb.GetPrefix() != tt.expectedPrefix {
				t.Errorf("NewKeyBuilder(%s).GetPrefix() = %s, want %s",
					tt.environment, kb.GetPrefix(), tt.expectedPrefix)
			}
		})
	}
}

func TestKeyBuilder_LedgerKeys(t *testing.T) {
	kb := NewKeyBuilder("staging")

	tests := []struct {
		name     string
		method   func() string
		expected string
	}{
		{
			name:     "Balances key",
			method:   kb.KeyLedgerBalances,
			expected: "staging:ledger:balances",
		},
		{
			name:     "Allowances key",
			method:   kb.KeyLedgerAllowances,
			expected: "staging:ledger:allowances",
		},
		{
			name:     "Supply key",
			method:   kb.KeyLedgerSupply,
			expected: "staging:ledger:supply",
		},
		{
			name:     "Reserve key",
			method:   kb.KeyLedgerReserve,
			expected: "staging:ledger:reserve",
		},
		{
			name:     "Idempotency key",
			method:   func() string { return kb.KeyIdempotency("0xabc", "req-1") },
			expected: "staging:idem:0xabc:req-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.method()
			if result != tt.expected {
				t.Errorf("%s = %s, want %s", tt.name, result, tt.expected)
			}
		})
	}
}

func TestKeyBuilder_EnvironmentSeparation(t *testing.T) {
	prodKey := NewKeyBuilder("production").KeyLedgerBalances()
	stagingKey := NewKeyBuilder("development").KeyLedgerBalances()

	if prodKey == stagingKey {
		t.Errorf("Production and staging keys should be different. Got: prod=%s, staging=%s",
			prodKey, stagingKey)
	}
	if prodKey != "prod:ledger:balances" {
		t.Errorf("Production key = %s, want %s", prodKey, "prod:ledger:balances")
	}
}
