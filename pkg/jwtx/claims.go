package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime of access tokens minted by the
// development API. Short on purpose so refresh paths get exercised.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the payload fields the client understands. Issuers disagree on
// key names for the same concept, so subject, user name and display name each
// have two accepted spellings.
type Claims struct {
	jwt.RegisteredClaims

	// NameID is the alternate subject key used by .NET style issuers.
	NameID string `json:"nameid,omitempty"`

	UniqueName string `json:"unique_name,omitempty"`
	Username   string `json:"username,omitempty"`

	GivenName string `json:"given_name,omitempty"`
	Name      string `json:"name,omitempty"`

	Email string `json:"email,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for a signed access token.
func NewAccessClaims(
	subject, username, fullName, email string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UniqueName: username,
		GivenName:  fullName,
		Email:      email,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
