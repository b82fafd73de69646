package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/slogx"
)

// rawEnvelope is an envelope whose data has not been decoded yet.
type rawEnvelope = Envelope[json.RawMessage]

// attempt performs one HTTP exchange under the client timeout. It never
// fails: transport and protocol problems come back as failed envelopes. The
// status is 0 when no response was received.
func (c *Client) attempt(
	ctx context.Context,
	method, endpoint string,
	payload []byte,
	withBearer bool,
) (int, rawEnvelope) {
	logger := c.log(ctx).With("method", method, "endpoint", endpoint)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	status, env, outcome := c.exchange(ctx, logger, method, endpoint, payload, withBearer)
	c.metrics.observeRequest(outcome, time.Since(start))

	return status, env
}

func (c *Client) exchange(
	ctx context.Context,
	logger *slog.Logger,
	method, endpoint string,
	payload []byte,
	withBearer bool,
) (int, rawEnvelope, string) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), body)
	if err != nil {
		logger.Warn("failed to create request", "error", err)
		return 0, Failure[json.RawMessage](fmt.Sprintf("%s: %v", MsgNetwork, err)), OutcomeNetwork
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if withBearer {
		token, err := c.store.Token(ctx)
		if err != nil {
			// Send the request anonymously; the server decides what that means.
			logger.Warn("failed to read stored token", "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("request timed out", "timeout", c.Timeout)
			return 0, Failure[json.RawMessage](MsgTimeout), OutcomeTimeout
		}
		logger.Warn("request failed", "error", err)
		return 0, Failure[json.RawMessage](fmt.Sprintf("%s: %v", MsgNetwork, err)), OutcomeNetwork
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		logger.Warn("non-JSON response", "status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"))
		return resp.StatusCode, Failure[json.RawMessage](MsgInvalidResponse), OutcomeInvalidResponse
	}

	var env rawEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("response body timed out", "timeout", c.Timeout)
			return resp.StatusCode, Failure[json.RawMessage](MsgTimeout), OutcomeTimeout
		}
		logger.Warn("malformed response body", "status", resp.StatusCode, "error", err)
		return resp.StatusCode, Failure[json.RawMessage](MsgInvalidResponse), OutcomeInvalidResponse
	}

	if !env.Success {
		logger.Debug("request unsuccessful", "status", resp.StatusCode, "message", env.Message)
		return resp.StatusCode, env, OutcomeFailure
	}

	return resp.StatusCode, env, OutcomeSuccess
}

// decodeData converts a raw envelope into a typed one. Data that does not
// fit T makes the whole response invalid.
func decodeData[T any](logger *slog.Logger, raw rawEnvelope) Envelope[T] {
	out := Envelope[T]{Success: raw.Success, Message: raw.Message, Errors: raw.Errors}

	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out
	}

	if err := json.Unmarshal(data, &out.Data); err != nil {
		logger.Warn("response data has unexpected shape", "error", err)
		return Failure[T](MsgInvalidResponse)
	}

	return out
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	return slogx.FromContext(ctx, c.logger)
}
