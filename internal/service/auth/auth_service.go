package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crowdgov/internal/domain"
	"crowdgov/internal/service"
	"crowdgov/pkg/errors"
	"crowdgov/pkg/logger"
)

const issuer = "crowdgov"

// Service issues and validates HS256 principal tokens
type Service struct {
	secret []byte
	logger *logger.Logger
	now    func() time.Time
}

var _ service.AuthService = (*Service)(nil)

// NewService creates a new auth service
func NewService(secret string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{secret: []byte(secret), logger: log, now: time.Now}
}

// IssueToken signs a token whose subject is principal
func (s *Service) IssueToken(principal domain.Principal, ttl time.Duration) (string, error) {
	if principal.IsZero() {
		return "", errors.NewValidationError("principal is required", nil)
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   principal.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.NewInternalError("Failed to sign token", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, issuer and expiry
func (s *Service) ValidateToken(_ context.Context, tokenString string) (*domain.AuthClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.WithError(err).Debug("Token rejected")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.NewAuthenticationError("Token has no subject")
	}

	out := &domain.AuthClaims{Principal: domain.Principal(claims.Subject)}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
