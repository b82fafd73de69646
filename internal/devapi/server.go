// Package devapi is a small in-memory implementation of the auth API. It
// backs the client tests and `authctl devserver`.
package devapi

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/cryptox"
	"github.com/aussiebroadwan/authclient/pkg/httpx"
	"github.com/aussiebroadwan/authclient/pkg/jwtx"
)

const (
	// RefreshCookie holds the refresh credential. Clients never read it.
	RefreshCookie = "refreshToken"

	DefaultIssuer     = "authclient-dev"
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Config struct {
	Issuer     string        // default: DefaultIssuer
	Secret     []byte        // HS256 secret, at least 32 bytes (default: random)
	AccessTTL  time.Duration // default: jwtx.DefaultAccessTokenTTL
	RefreshTTL time.Duration // default: DefaultRefreshTTL

	// Password hashing cost (default: cryptox.DevPasswordParams).
	Password cryptox.PasswordParams

	// RotateRefresh makes refresh credentials single use. Concurrent
	// refreshes that present the same cookie then fail after the first.
	RotateRefresh bool

	// LoginLimit throttles the credential endpoints per client IP
	// (default: httpx.LoginLimit).
	LoginLimit httpx.RateLimitConfig

	// UserLimit throttles authenticated endpoints per client IP and user
	// (default: httpx.UserLimit).
	UserLimit httpx.RateLimitConfig

	Logger *slog.Logger
}

// Server is an http.Handler serving the auth API.
type Server struct {
	cfg    Config
	signer *jwtx.HS256Signer
	logger *slog.Logger
	now    func() time.Time

	users    *userStore
	sessions *sessionStore

	refreshCalls atomic.Int64

	once    sync.Once
	handler http.Handler
}

// New creates a server with no users.
func New(cfg Config) (*Server, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Password == (cryptox.PasswordParams{}) {
		cfg.Password = cryptox.DevPasswordParams
	}
	if cfg.LoginLimit.RequestsPerWindow <= 0 || cfg.LoginLimit.Window <= 0 {
		cfg.LoginLimit = httpx.LoginLimit
	}
	if cfg.UserLimit.RequestsPerWindow <= 0 || cfg.UserLimit.Window <= 0 {
		cfg.UserLimit = httpx.UserLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("devapi: generate secret: %w", err)
		}
	}

	signer, err := jwtx.NewHS256Signer(cfg.Secret, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("devapi: %w", err)
	}

	return &Server{
		cfg:      cfg,
		signer:   signer,
		logger:   cfg.Logger,
		now:      time.Now,
		users:    newUserStore(),
		sessions: newSessionStore(),
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.once.Do(func() { s.handler = s.routes() })
	s.handler.ServeHTTP(w, r)
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// credentials stay valid, so clients recover by refreshing.
func (s *Server) ExpireAccessTokens() {
	s.sessions.expireAccessTokens()
	s.logger.Info("all access tokens expired")
}

// RefreshCount returns how many refresh calls the server has received.
func (s *Server) RefreshCount() int64 {
	return s.refreshCalls.Load()
}

// Verify checks an access token's signature, issuer and expiry and that it
// has not been expired by ExpireAccessTokens or logout.
func (s *Server) Verify(token string) (*jwtx.Claims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	if !s.sessions.accessTokenLive(claims.ID) {
		return nil, jwtx.ErrExpired
	}
	return claims, nil
}

func (s *Server) issueAccessToken(u user) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID.String(), u.UserName, u.FullName, u.Email, s.cfg.Issuer, s.cfg.AccessTTL, s.now())

	token, err := s.signer.Sign(claims)
	if err != nil {
		return "", err
	}

	s.sessions.trackAccessToken(claims.ID, u.ID)
	return token, nil
}
