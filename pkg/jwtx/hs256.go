package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Signer signs and verifies tokens with a shared secret. It backs the
// development API only; real deployments get their tokens from the server.
type HS256Signer struct {
	secret []byte
	issuer string
}

// NewHS256Signer creates a signer for the given secret and issuer.
func NewHS256Signer(secret []byte, issuer string) (*HS256Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwtx: HS256 secret must be at least 32 bytes, got %d", len(secret))
	}
	return &HS256Signer{secret: secret, issuer: issuer}, nil
}

func (s *HS256Signer) Alg() string    { return jwt.SigningMethodHS256.Alg() }
func (s *HS256Signer) Issuer() string { return s.issuer }

// Sign turns the claims into a compact JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify validates the signature, issuer and expiry of a token.
func (s *HS256Signer) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		// Method mismatches are reported as signature failures by jwt/v5.
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSig
		}
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if err := claims.ValidateIssuer(s.issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return nil, err
	}

	return claims, nil
}
