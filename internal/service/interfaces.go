package service

import (
	"context"
	"time"

	"crowdgov/internal/domain"
)

// AuthService defines the interface for principal authentication
type AuthService interface {
	// IssueToken signs a bearer token naming principal, valid for ttl
	IssueToken(principal domain.Principal, ttl time.Duration) (string, error)

	// ValidateToken verifies a bearer token and returns its claims
	ValidateToken(ctx context.Context, token string) (*domain.AuthClaims, error)
}

// IdempotencyService guards against replayed mutating requests
type IdempotencyService interface {
	// TryLock claims key for principal. It returns false when the key was already used.
	TryLock(ctx context.Context, principal domain.Principal, key string) (bool, error)

	// Release frees a key so a failed request can be retried
	Release(ctx context.Context, principal domain.Principal, key string) error
}

// Services aggregates all service interfaces
type Services struct {
	Auth        AuthService
	Idempotency IdempotencyService
}
