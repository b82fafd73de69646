package devapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authclient/pkg/authsdk"
	"github.com/aussiebroadwan/authclient/pkg/cryptox"
	"github.com/aussiebroadwan/authclient/pkg/httpx"
	"github.com/aussiebroadwan/authclient/pkg/idx"
	"github.com/aussiebroadwan/authclient/pkg/slogx"
)

// Messages sent back in failure envelopes.
const (
	MsgInvalidBody        = "invalid request body"
	MsgInvalidCredentials = "invalid username or password"
	MsgInvalidRefresh     = "invalid or expired refresh token"
	MsgValidation         = "one or more validation errors occurred"
	MsgUserExists         = "user name is already taken"
	MsgServerError        = "internal server error"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidation, errs...)
		return
	}

	u, err := s.authenticate(req.UserName, req.Password)
	if err != nil {
		log.Info("login rejected", "user", req.UserName)
		httpx.WriteError(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}

	token, err := s.issueAccessToken(u)
	if err != nil {
		log.Error("failed to sign access token", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, MsgServerError)
		return
	}
	if err := s.setRefreshCookie(w, u.ID); err != nil {
		log.Error("failed to issue refresh token", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, MsgServerError)
		return
	}

	log.Info("login succeeded", "user_id", u.ID, "token", cryptox.FingerprintToken(token))
	httpx.WriteOK(w, token)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	s.refreshCalls.Add(1)

	cookie, err := r.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		httpx.WriteError(w, http.StatusUnauthorized, MsgInvalidRefresh)
		return
	}

	userID, ok := s.sessions.useRefresh(cookie.Value, s.now(), s.cfg.RotateRefresh)
	if !ok {
		log.Info("refresh rejected", "token", cryptox.FingerprintToken(cookie.Value))
		clearRefreshCookie(w)
		httpx.WriteError(w, http.StatusUnauthorized, MsgInvalidRefresh)
		return
	}

	u, ok := s.users.get(userID)
	if !ok {
		clearRefreshCookie(w)
		httpx.WriteError(w, http.StatusUnauthorized, MsgInvalidRefresh)
		return
	}

	token, err := s.issueAccessToken(u)
	if err != nil {
		log.Error("failed to sign access token", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, MsgServerError)
		return
	}
	if s.cfg.RotateRefresh {
		if err := s.setRefreshCookie(w, u.ID); err != nil {
			log.Error("failed to rotate refresh token", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, MsgServerError)
			return
		}
	}

	log.Info("access token refreshed", "user_id", u.ID, "token", cryptox.FingerprintToken(token))
	httpx.WriteOK(w, token)
}

// handleLogout revokes every credential of the caller, identified by either
// the refresh cookie or the bearer token. It always succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var userID idx.ID
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		userID, _ = s.sessions.refreshOwner(cookie.Value)
	}
	if userID.IsZero() {
		if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			if claims, err := s.Verify(strings.TrimSpace(raw)); err == nil {
				userID = idx.ID(claims.Subject)
			}
		}
	}

	if !userID.IsZero() {
		s.sessions.revokeUser(userID)
		log.Info("logged out", "user_id", userID)
	}

	clearRefreshCookie(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.Envelope[any]{Success: true, Message: "logged out"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidation, errs...)
		return
	}

	id, err := s.CreateUser(req.UserName, req.FullName, "", req.Password)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			httpx.WriteError(w, http.StatusConflict, MsgValidation,
				authsdk.FieldError{Field: "UserName", Message: MsgUserExists})
			return
		}
		log.Error("failed to create user", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, MsgServerError)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.Envelope[any]{Success: true, Data: id, Message: "registration successful"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.users.get(idx.ID(httpx.UserIDFromContext(r.Context())))
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	httpx.WriteOK(w, u.identity())
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, userID idx.ID) error {
	expires := s.now().Add(s.cfg.RefreshTTL)

	token, err := s.sessions.issueRefresh(userID, expires)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
