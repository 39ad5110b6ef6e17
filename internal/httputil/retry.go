// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client used for ORCID token calls.
package httputil

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/sieve/internal/logging"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// RetryTransport retries requests answered with HTTP 429 (Too Many
// Requests). The delay starts at RetryBaseDelay and doubles each attempt
// unless the server sends a Retry-After header in seconds.
//
// Request bodies are replayed through Request.GetBody; a request with a
// body but no GetBody is sent once. After MaxRetries the last 429
// response is returned so the caller can inspect it.
type RetryTransport struct {
	// Base performs the requests (default http.DefaultTransport).
	Base http.RoundTripper

	// MaxRetries bounds the retries; 0 means the default (3).
	MaxRetries int

	Log *logging.Logger
}

// NewClient returns an http.Client that retries 429 responses.
func NewClient(maxRetries int, timeout time.Duration, log *logging.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &RetryTransport{MaxRetries: maxRetries, Log: log},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	maxRetries := t.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = body
		}

		resp, err := base.RoundTrip(attemptReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries || !replayable {
			return resp, nil
		}

		backoff := retryAfter(resp.Header.Get("Retry-After"))
		if backoff <= 0 {
			backoff = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if t.Log != nil {
			t.Log.Warn("rate limited, retrying", "url", req.URL.Redacted(),
				"backoff", backoff.String(), "attempt", attempt+1, "max", maxRetries)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
