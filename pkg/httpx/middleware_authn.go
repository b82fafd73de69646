package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authclient/pkg/jwtx"
	"github.com/aussiebroadwan/authclient/pkg/slogx"
)

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(token string) (*jwtx.Claims, error)
}

// AuthnMiddleware rejects requests without a valid bearer token. Rejections
// are 401 failure envelopes, which is what makes clients refresh.
func AuthnMiddleware(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// RFC 6750 challenge plus the usual envelope body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, desc)
}
