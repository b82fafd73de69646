package authsdk

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/authclient/pkg/cryptox"
)

// Login exchanges credentials for an access token and stores it. The token
// is the envelope's data.
func (c *Client) Login(ctx context.Context, req LoginRequest) Envelope[string] {
	env := Post[string](ctx, c, LoginEndpoint, req)
	if !env.Success || env.Data == "" {
		return env
	}

	if err := c.store.SetToken(ctx, env.Data); err != nil {
		c.log(ctx).Error("failed to store access token", "error", err)
		return Failure[string](MsgStorage)
	}

	c.log(ctx).Info("logged in", "user", req.UserName, "token", cryptox.FingerprintToken(env.Data))
	return env
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) Envelope[json.RawMessage] {
	return Post[json.RawMessage](ctx, c, RegisterEndpoint, req)
}

// Refresh mints a new access token from the refresh cookie and stores it.
// The call carries no body and no bearer token.
func (c *Client) Refresh(ctx context.Context) Envelope[string] {
	if c.refreshGroup == nil {
		return c.refresh(ctx)
	}

	v, _, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refresh(ctx), nil
	})
	return v.(Envelope[string])
}

func (c *Client) refresh(ctx context.Context) Envelope[string] {
	logger := c.log(ctx)

	if c.refreshLimiter != nil && !c.refreshLimiter.Allow() {
		logger.Warn("token refresh throttled")
		c.metrics.observeRefresh(RefreshThrottled)
		return Failure[string](MsgRefreshThrottled)
	}

	_, raw := c.attempt(ctx, http.MethodPost, RefreshEndpoint, nil, false)
	env := decodeData[string](logger, raw)
	if !env.Success || env.Data == "" {
		c.metrics.observeRefresh(RefreshFailed)
		if env.Success || env.Message == "" {
			return Failure[string](MsgRefreshFailed, env.Errors...)
		}
		return env
	}

	if err := c.store.SetToken(ctx, env.Data); err != nil {
		logger.Error("failed to store refreshed token", "error", err)
		c.metrics.observeRefresh(RefreshFailed)
		return Failure[string](MsgRefreshFailed)
	}

	logger.Info("access token refreshed", "token", cryptox.FingerprintToken(env.Data))
	c.metrics.observeRefresh(RefreshSucceeded)
	return env
}

// Logout asks the server to invalidate the session and then clears the
// local credentials whatever the server answered.
func (c *Client) Logout(ctx context.Context) Envelope[json.RawMessage] {
	env := Post[json.RawMessage](ctx, c, LogoutEndpoint, nil)
	if !env.Success {
		c.log(ctx).Info("server logout failed", "message", env.Message)
	}

	if err := c.store.Clear(ctx); err != nil {
		c.log(ctx).Error("failed to clear credentials", "error", err)
	}
	return env
}
