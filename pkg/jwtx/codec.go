package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, malformed or missing claims, wrong token use, expiry. Callers
// must not be able to distinguish which case applied.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// AccessIdentity is what a verified access token asserts.
type AccessIdentity struct {
	UserID string
	Email  string
}

// RefreshIdentity is what a verified refresh token asserts. SessionID keys
// the server-side refresh session row.
type RefreshIdentity struct {
	UserID    string
	SessionID string
}

// Codec signs and verifies the platform's access and refresh tokens with a
// single Ed25519 keypair. It is stateless beyond the key material; all
// revocation state lives in the refresh session store.
type Codec struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewCodec builds a Codec from a base64url-encoded 32-byte Ed25519 seed.
func NewCodec(seed, issuer string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	raw, err := base64.RawURLEncoding.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode signing seed: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwtx: signing seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
	}

	key := ed25519.NewKeyFromSeed(raw)
	return newCodec(key, issuer, accessTTL, refreshTTL), nil
}

// NewEphemeralCodec generates a fresh keypair. Tokens do not survive a
// restart; fine for dev and tests, not for multi-instance deployments.
func NewEphemeralCodec(issuer string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ephemeral key: %w", err)
	}
	return newCodec(key, issuer, accessTTL, refreshTTL), nil
}

func newCodec(key ed25519.PrivateKey, issuer string, accessTTL, refreshTTL time.Duration) *Codec {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Codec{
		key:        key,
		pub:        key.Public().(ed25519.PublicKey),
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// SignAccess mints a short-lived access token for a user.
func (c *Codec) SignAccess(userID, email string) (string, error) {
	claims := newClaims(userID, UseAccess, c.Issuer, c.AccessTTL, c.now())
	claims.Email = email
	return c.sign(claims)
}

// SignRefresh mints a refresh token bound to a refresh session row.
func (c *Codec) SignRefresh(userID, sessionID string) (string, error) {
	claims := newClaims(userID, UseRefresh, c.Issuer, c.RefreshTTL, c.now())
	claims.SID = sessionID
	return c.sign(claims)
}

func (c *Codec) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(c.key)
}

// VerifyAccess validates an access token and returns its identity.
func (c *Codec) VerifyAccess(token string) (AccessIdentity, error) {
	claims, err := c.verify(token, UseAccess)
	if err != nil {
		return AccessIdentity{}, err
	}
	return AccessIdentity{UserID: claims.Subject, Email: claims.Email}, nil
}

// VerifyRefresh validates a refresh token and returns its identity.
func (c *Codec) VerifyRefresh(token string) (RefreshIdentity, error) {
	claims, err := c.verify(token, UseRefresh)
	if err != nil {
		return RefreshIdentity{}, err
	}
	if claims.SID == "" {
		return RefreshIdentity{}, ErrInvalidToken
	}
	return RefreshIdentity{UserID: claims.Subject, SessionID: claims.SID}, nil
}

func (c *Codec) verify(token, wantUse string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return c.pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(c.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Use != wantUse || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
