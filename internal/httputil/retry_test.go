// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	RetryBaseDelay = time.Millisecond
	MaxRetryAfter = 5 * time.Millisecond
	m.Run()
}

// sequence serves the given statuses in order, repeating the last one.
func sequence(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		w.WriteHeader(statuses[min(n, len(statuses))-1])
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestDoWithRetry(t *testing.T) {
	cases := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"success first try", []int{200}, 5, 200, 1},
		{"rate limited then ok", []int{429, 429, 200}, 5, 200, 3},
		{"overloaded then ok", []int{503, 200}, 5, 200, 2},
		{"retries exhausted", []int{429}, 3, 429, 4},
		{"no retries", []int{503}, 0, 503, 1},
		{"negative means no retries", []int{429}, -1, 429, 1},
		{"default budget", []int{503}, DefaultMaxRetries, 503, 6},
		{"server error not retried", []int{500}, 5, 500, 1},
		{"not found not retried", []int{404}, 5, 404, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, calls := sequence(t, tc.statuses...)
			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tc.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestDoWithRetryContextCancelled(t *testing.T) {
	ts, _ := sequence(t, 429)

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetryResendsBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"contents":[]}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"contents":[]}`, `{"contents":[]}`}, bodies)
}

func TestBackoff(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, RetryBaseDelay, backoff(resp, 0))
	assert.Equal(t, 4*RetryBaseDelay, backoff(resp, 2))

	resp.Header.Set("Retry-After", "0")
	assert.Equal(t, time.Duration(0), backoff(resp, 3))

	resp.Header.Set("Retry-After", "3600")
	assert.Equal(t, MaxRetryAfter, backoff(resp, 0))

	resp.Header.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
	assert.Equal(t, 2*RetryBaseDelay, backoff(resp, 1))
}
