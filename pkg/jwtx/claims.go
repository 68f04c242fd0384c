package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewbase/crewbase/pkg/idx"
)

// Default token TTLs. Short-lived access tokens bound the window a stolen
// bearer credential stays useful; refresh tokens live longer because they
// are revocable server-side.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use values carried in the "use" claim. Verification is strict about
// these so an access token can never be replayed against the refresh
// endpoint or vice versa.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims are the platform's token claims.
//
// Access tokens carry the subject and email only. Roles are deliberately
// absent: they are re-checked against the live database on every request, so
// a demotion takes effect immediately instead of waiting out token expiry.
//
// Refresh tokens carry the subject and the refresh session id (SID), which
// keys the server-side session row backing rotation and revocation.
type Claims struct {
	jwt.RegisteredClaims

	// Use discriminates access from refresh tokens.
	Use string `json:"use"`

	// Email of the authenticated user (access tokens only).
	Email string `json:"email,omitempty"`

	// SID is the refresh session id (refresh tokens only).
	SID string `json:"sid,omitempty"`
}

func newClaims(subject, use, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique jti keeps two tokens minted within the same second
			// from serializing identically.
			ID:        idx.New().String(),
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Use: use,
	}
}
