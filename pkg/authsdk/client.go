package authsdk

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/slogx"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is used when no API URL is configured.
	DefaultBaseURL = "http://localhost:5097/api"

	// DefaultTimeout bounds every individual HTTP exchange.
	DefaultTimeout = 10 * time.Second
)

const (
	LoginEndpoint    = "/auth/login"
	RefreshEndpoint  = "/auth/refresh-token"
	LogoutEndpoint   = "/auth/logout"
	RegisterEndpoint = "/user/register"
)

// TokenStore is the part of the credential store the pipeline needs.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Client issues authorized calls against the API. It attaches the stored
// bearer token, sends cookies on every call (the refresh credential lives
// in a cookie the client never reads), and refreshes an expired token once
// before giving up on a request.
type Client struct {
	BaseURL string

	// HTTPClient must carry a cookie jar for refresh to work. NewClient
	// installs one unless WithHTTPClient supplies a client.
	HTTPClient *http.Client

	// Timeout bounds each exchange, including the refresh call.
	Timeout time.Duration

	store   TokenStore
	logger  *slog.Logger
	metrics *Metrics

	refreshGroup   *singleflight.Group
	refreshLimiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRefreshCoalescing makes concurrent refreshes share a single call.
// Without it every request that sees a 401 refreshes on its own.
func WithRefreshCoalescing() Option {
	return func(c *Client) { c.refreshGroup = &singleflight.Group{} }
}

// WithRefreshLimiter caps how often the refresh endpoint is called. A
// refresh denied by the limiter counts as a failed refresh.
func WithRefreshLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.refreshLimiter = l }
}

// NewClient creates a client for baseURL backed by store.
func NewClient(baseURL string, store TokenStore, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Timeout: DefaultTimeout,
		store:   store,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.HTTPClient == nil {
		jar, _ := cookiejar.New(nil) // only fails with a bad PublicSuffixList
		c.HTTPClient = &http.Client{
			Jar:       jar,
			Transport: slogx.NewTransport(nil, c.logger),
		}
	}

	return c
}

// url builds a complete URL by appending the endpoint to the base URL.
func (c *Client) url(endpoint string) string {
	return c.BaseURL + endpoint
}
