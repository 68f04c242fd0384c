package domain

import "time"

// RefreshSession is the server-side record backing one device/browser
// session. Only the SHA-256 fingerprint of the current refresh token is
// stored, never the token itself.
//
// A session is usable iff RevokedAt == nil && ExpiresAt > now. RevokedAt is
// set on logout, on reuse detection, and by admin action; it is terminal.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RotatedAt *time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether the session can still be rotated at the given time.
func (s RefreshSession) Usable(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"` // access token lifetime
}
