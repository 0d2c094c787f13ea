// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the registry client and
// the direct model provider.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff step. Tests override it to avoid
// real sleeps.
var RetryBaseDelay = 10 * time.Second

// MaxRetryAfter caps a server-supplied Retry-After delay.
var MaxRetryAfter = 2 * time.Minute

// DefaultMaxRetries is the retry budget callers use when nothing is configured.
const DefaultMaxRetries = 5

// Retryable reports whether a response status means "try again later":
// 429 from rate limits, 503 from an overloaded model or registry.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry sends req, retrying Retryable responses with exponential
// backoff starting at RetryBaseDelay. A Retry-After header given in
// seconds replaces the computed step, up to MaxRetryAfter.
//
// maxRetries is the number of retries after the first attempt; zero or
// less sends the request once. Request bodies are rewound through
// req.GetBody before each attempt. Cancelling ctx during a wait returns
// ctx.Err(). Once retries run out the last response is returned for the
// caller to classify.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(resp, attempt)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			req.Body = body
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff is RetryBaseDelay * 2^attempt unless the server asked for a
// specific delay.
func backoff(resp *http.Response, attempt int) time.Duration {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, MaxRetryAfter)
	}
	return RetryBaseDelay << attempt
}
