package jwtx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// segmentDecoder accepts both padded and unpadded base64url segments.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeClaims reads the payload segment of a compact token without
// verifying its signature. Only the second segment is inspected; the header
// and signature are opaque to the client.
//
// Decoding is lenient: string claims given as numbers are read as their
// decimal text, and a registered claim of the wrong type is left unset
// rather than failing the whole payload.
func DecodeClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, ErrMalformed
	}

	// Tolerate payloads encoded with the standard alphabet.
	seg := strings.NewReplacer("+", "-", "/", "_").Replace(parts[1])

	raw, err := segmentDecoder.DecodeSegment(seg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !utf8.Valid(raw) {
		return nil, ErrInvalidEncoding
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrInvalidClaims
	}

	m := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after claims", ErrInvalidClaims)
	}

	return claimsFromMap(m), nil
}

func claimsFromMap(m jwt.MapClaims) *Claims {
	c := &Claims{
		NameID:     claimString(m, "nameid"),
		UniqueName: claimString(m, "unique_name"),
		Username:   claimString(m, "username"),
		GivenName:  claimString(m, "given_name"),
		Name:       claimString(m, "name"),
		Email:      claimString(m, "email"),
	}

	c.Issuer = claimString(m, "iss")
	c.Subject = claimString(m, "sub")
	c.ID = claimString(m, "jti")

	// Malformed registered claims are dropped, not fatal.
	c.Audience, _ = m.GetAudience()
	c.ExpiresAt, _ = m.GetExpirationTime()
	c.NotBefore, _ = m.GetNotBefore()
	c.IssuedAt, _ = m.GetIssuedAt()

	return c
}

// claimString returns a string claim, or the decimal text of a numeric one.
func claimString(m jwt.MapClaims, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
