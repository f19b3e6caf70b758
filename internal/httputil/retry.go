// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source adapters.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff after a throttled response. Tests
// override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryDelay caps a single backoff, including one requested by Retry-After.
var MaxRetryDelay = 60 * time.Second

const defaultMaxRetries = 3

// Retryable reports whether a status asks the client to back off and retry.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries on 429 and 503 with exponential
// backoff starting at RetryBaseDelay. A Retry-After header given in seconds
// replaces the computed delay. When maxRetries is 0 the default (3) is used.
//
// The throttled body is drained and closed before each wait. A cancelled
// context during a wait returns ctx.Err(). After the last retry the final
// throttled response is returned so the caller can inspect its status.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	return DoWithRetryPaced(ctx, client, req, maxRetries, nil)
}

// DoWithRetryPaced is DoWithRetry with pace called before every attempt,
// retries included. A pace error aborts the request and is returned as is.
func DoWithRetryPaced(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, pace func(context.Context) error) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	backoff := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		if pace != nil {
			if err := pace(ctx); err != nil {
				return nil, err
			}
		}
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		wait := backoff
		if d, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			wait = d
		}
		if wait > MaxRetryDelay {
			wait = MaxRetryDelay
		}
		slog.Debug("source throttled, retrying",
			"host", req.URL.Host, "status", resp.StatusCode,
			"wait", wait, "attempt", attempt+1, "max", maxRetries)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func retryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
