package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Send issues an authorized request and decodes the envelope's data into T.
// body is JSON-encoded when non-nil. Send never returns an error; inspect
// the envelope's Success flag.
func Send[T any](ctx context.Context, c *Client, method, endpoint string, body any) Envelope[T] {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.log(ctx).Warn("failed to encode request body", "endpoint", endpoint, "error", err)
			return Failure[T](fmt.Sprintf("%s: %v", MsgEncodeRequest, err))
		}
		payload = b
	}

	return decodeData[T](c.log(ctx), c.do(ctx, method, endpoint, payload))
}

func Get[T any](ctx context.Context, c *Client, endpoint string) Envelope[T] {
	return Send[T](ctx, c, http.MethodGet, endpoint, nil)
}

func Post[T any](ctx context.Context, c *Client, endpoint string, body any) Envelope[T] {
	return Send[T](ctx, c, http.MethodPost, endpoint, body)
}

func Put[T any](ctx context.Context, c *Client, endpoint string, body any) Envelope[T] {
	return Send[T](ctx, c, http.MethodPut, endpoint, body)
}

func Delete[T any](ctx context.Context, c *Client, endpoint string) Envelope[T] {
	return Send[T](ctx, c, http.MethodDelete, endpoint, nil)
}

// do runs the exchange and, when the server rejects the access token on an
// ordinary endpoint, refreshes it and re-issues the request exactly once.
// Whatever the retry returns is final.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) rawEnvelope {
	status, env := c.attempt(ctx, method, endpoint, payload, true)
	if env.Success || status != http.StatusUnauthorized || !refreshable(endpoint) {
		return env
	}

	logger := c.log(ctx).With("method", method, "endpoint", endpoint)
	logger.Info("access token rejected, refreshing")

	refreshed := c.Refresh(ctx)
	if !refreshed.Success || refreshed.Data == "" {
		logger.Info("refresh failed, returning original response", "message", refreshed.Message)
		return env
	}

	_, retried := c.attempt(ctx, method, endpoint, payload, true)
	return retried
}

// refreshable reports whether a 401 from endpoint should trigger a refresh.
// Auth endpoints report bad credentials with 401 too, and refreshing after
// a failed refresh would loop.
func refreshable(endpoint string) bool {
	return endpoint != RefreshEndpoint && !strings.Contains(endpoint, "/auth/")
}
