package authsdk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Messages carried by envelopes the client builds itself.
const (
	MsgTimeout            = "request timed out: the server took too long to respond"
	MsgInvalidResponse    = "invalid server response"
	MsgNetwork            = "unable to reach the server"
	MsgEncodeRequest      = "unable to encode request body"
	MsgRefreshFailed      = "failed to refresh token"
	MsgRefreshThrottled   = "token refresh throttled"
	MsgUnexpected         = "an unexpected error occurred"
	MsgValidation         = "validation failed"
	MsgSubmissionInFlight = "a submission is already in progress"
	MsgNoIdentity         = "unable to read identity from token"
	MsgStorage            = "unable to persist session"
)

// Failure builds a failed envelope.
func Failure[T any](message string, errs ...FieldError) Envelope[T] {
	return Envelope[T]{Success: false, Message: message, Errors: errs}
}

// ErrorMessage returns the best single message to show for a failed
// envelope: the top-level message, else the first field error, else a
// generic fallback.
func (e Envelope[T]) ErrorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Message
	}
	return MsgUnexpected
}

// FieldErrors maps field names to messages. Servers often send PascalCase
// field names; keys are normalised to lower camel case so they line up with
// the request JSON names. Later duplicates win.
func (e Envelope[T]) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		out[lowerFirst(fe.Field)] = fe.Message
	}
	return out
}

// HasFieldError reports whether any field error targets field, ignoring
// case.
func (e Envelope[T]) HasFieldError(field string) bool {
	for _, fe := range e.Errors {
		if strings.EqualFold(fe.Field, field) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
