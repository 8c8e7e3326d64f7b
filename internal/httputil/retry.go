// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the search providers.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 and 503 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// MaxRetryAfter caps a server supplied Retry-After value.
var MaxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 3

// IsThrottled reports whether status is one of the codes providers use to
// signal rate limiting or blocking.
func IsThrottled(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries throttled responses with
// exponential backoff starting at RetryBaseDelay. A numeric Retry-After
// header replaces the computed delay, capped at MaxRetryAfter.
//
// When maxRetries is 0 the default (3) is used; a negative value disables
// retries. If the context is cancelled during a wait the function returns
// ctx.Err(). After exhausting retries the last throttled response is
// returned so the caller can classify it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !IsThrottled(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		backoff := RetryBaseDelay << attempt
		if d, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			backoff = d
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		slog.Debug("throttled, backing off",
			"url", req.URL.Host, "status", resp.StatusCode,
			"delay", backoff, "attempt", attempt+1, "max_retries", maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses the delay-seconds form of a Retry-After header.
func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d, true
}
