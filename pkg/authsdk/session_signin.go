package authsdk

import (
	"context"
	"encoding/json"

	"github.com/aussiebroadwan/authclient/pkg/identity"
)

// SignIn runs the complete login flow for a form submission: validate the
// input, exchange credentials, decode the identity from the returned token,
// persist it and mark the session authenticated.
//
// Only one submission runs at a time; a call made while another SignIn or
// SignUp is in flight fails immediately with MsgSubmissionInFlight.
func (s *Session) SignIn(ctx context.Context, req LoginRequest) Envelope[string] {
	if !s.submitting.CompareAndSwap(false, true) {
		return Failure[string](MsgSubmissionInFlight)
	}
	defer s.submitting.Store(false)

	if errs := req.Validate(); len(errs) > 0 {
		return Failure[string](MsgValidation, errs...)
	}

	env := s.auth.Login(ctx, req)
	if !env.Success {
		return env
	}

	id, err := identity.Decode(env.Data)
	if err != nil {
		s.logger.Debug("login token carries no readable identity", "error", err)
		return Failure[string](MsgNoIdentity)
	}

	if err := s.store.SetIdentity(ctx, *id); err != nil {
		s.logger.Error("failed to persist identity", "error", err)
		return Failure[string](MsgStorage)
	}

	s.Login(ctx, *id)
	return env
}

// SignUp validates and submits a registration. It shares SignIn's
// submission latch and does not log the new user in.
func (s *Session) SignUp(ctx context.Context, req RegisterRequest) Envelope[json.RawMessage] {
	if !s.submitting.CompareAndSwap(false, true) {
		return Failure[json.RawMessage](MsgSubmissionInFlight)
	}
	defer s.submitting.Store(false)

	if errs := req.Validate(); len(errs) > 0 {
		return Failure[json.RawMessage](MsgValidation, errs...)
	}

	return s.auth.Register(ctx, req)
}
