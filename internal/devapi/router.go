package devapi

import (
	"net/http"

	"github.com/aussiebroadwan/authclient/pkg/httpx"
	"github.com/aussiebroadwan/authclient/pkg/slogx"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	loginLimit := httpx.RateLimitByIP(s.cfg.LoginLimit)
	userLimit := httpx.RateLimitMiddleware(s.cfg.UserLimit,
		httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.UserIDKeyExtractor))

	mux.Handle("POST /auth/login", httpx.Chain(http.HandlerFunc(s.handleLogin), loginLimit))
	mux.Handle("POST /auth/refresh-token", http.HandlerFunc(s.handleRefresh))
	mux.Handle("POST /auth/logout", http.HandlerFunc(s.handleLogout))
	mux.Handle("POST /user/register", httpx.Chain(http.HandlerFunc(s.handleRegister), loginLimit))
	mux.Handle("GET /user/me", httpx.Chain(http.HandlerFunc(s.handleMe), httpx.AuthnMiddleware(s), userLimit))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
	})

	return httpx.Chain(mux, slogx.HTTPMiddleware(s.logger))
}
