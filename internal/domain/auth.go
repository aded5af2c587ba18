package domain

import "time"

// AuthClaims is the verified content of a bearer token
type AuthClaims struct {
	Principal Principal `json:"principal"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
