// Package identity maps token claims onto the application-level user record.
package identity

import (
	"github.com/aussiebroadwan/authclient/pkg/jwtx"
)

// Identity is the current user as the rest of the application sees it. It is
// persisted alongside the token so a restart can restore the session without
// decoding the token again.
type Identity struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
}

// FromClaims resolves each field from the first non-empty of its accepted
// claim keys.
func FromClaims(c *jwtx.Claims) Identity {
	return Identity{
		ID:       firstNonEmpty(c.Subject, c.NameID),
		UserName: firstNonEmpty(c.UniqueName, c.Username),
		FullName: firstNonEmpty(c.GivenName, c.Name),
		Email:    c.Email,
	}
}

// FromToken decodes the token payload and returns the identity it carries,
// or nil when the token cannot be decoded. A nil result means "no identity
// available"; callers must not treat it as fatal.
func FromToken(token string) *Identity {
	id, _ := Decode(token)
	return id
}

// Decode is FromToken with the decode error exposed for logging.
func Decode(token string) (*Identity, error) {
	claims, err := jwtx.DecodeClaims(token)
	if err != nil {
		return nil, err
	}

	id := FromClaims(claims)
	return &id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
