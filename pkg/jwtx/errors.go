package jwtx

import "errors"

var (
	ErrMalformed       = errors.New("jwtx: malformed token")
	ErrInvalidEncoding = errors.New("jwtx: payload is not valid utf-8")
	ErrInvalidClaims   = errors.New("jwtx: invalid claims")
	ErrInvalidSig      = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)
