package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/idx"
)

// RequestIDHeader carries the correlation id of an outgoing call.
const RequestIDHeader = "X-Request-ID"

// Transport is an http.RoundTripper that stamps every outgoing request with
// a request id and logs it once the response headers arrive.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()

		// RoundTrippers must not modify the caller's request.
		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, reqID)
	}

	logger := FromContext(r.Context(), t.Logger).With(
		"req_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
	)

	start := time.Now()
	resp, err := base.RoundTrip(r)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Debug("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request", "status", resp.StatusCode, "duration_ms", duration)
	return resp, nil
}
