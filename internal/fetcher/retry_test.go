package fetcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShouldRetryDecisions(t *testing.T) {
	t.Parallel()

	policy := NewExponentialRetryPolicy()

	cases := []struct {
		name    string
		err     error
		status  int
		attempt int
		want    bool
	}{
		{name: "network error retries", err: errors.New("connection reset"), attempt: 1, want: true},
		{name: "500 retries", status: http.StatusInternalServerError, attempt: 1, want: true},
		{name: "503 retries", status: http.StatusServiceUnavailable, attempt: 2, want: true},
		{name: "429 retries", status: http.StatusTooManyRequests, attempt: 1, want: true},
		{name: "404 does not retry", status: http.StatusNotFound, attempt: 1, want: false},
		{name: "403 does not retry", status: http.StatusForbidden, attempt: 1, want: false},
		{name: "200 does not retry", status: http.StatusOK, attempt: 1, want: false},
		{name: "attempt ceiling", status: http.StatusInternalServerError, attempt: 3, want: false},
		{name: "canceled context does not retry", err: context.Canceled, attempt: 1, want: false},
		{name: "deadline does not retry", err: context.DeadlineExceeded, attempt: 1, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, policy.ShouldRetry(tc.err, tc.status, tc.attempt))
		})
	}
}

func TestBackoffIsBoundedAndGrows(t *testing.T) {
	t.Parallel()

	policy := NewExponentialRetryPolicy()
	for attempt := 1; attempt <= 6; attempt++ {
		delay := policy.Backoff(attempt)
		require.Positive(t, delay)
		require.LessOrEqual(t, delay, policy.maxDelay)
		// Jitter only adds on top of the deterministic half.
		floor := float64(policy.baseDelay) * float64(int(1)<<attempt) / 2
		if floor > float64(policy.maxDelay)/2 {
			floor = float64(policy.maxDelay) / 2
		}
		require.GreaterOrEqual(t, float64(delay), floor)
	}
}

type scriptedFetcher struct {
	mu        sync.Mutex
	responses []scripted
	calls     int
}

type scripted struct {
	resp Response
	err  error
}

func (f *scriptedFetcher) Fetch(context.Context, Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	step := f.responses[idx]
	return step.resp, step.err
}

func fastPolicy() *ExponentialRetryPolicy {
	return &ExponentialRetryPolicy{maxAttempts: 3, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}
}

func TestRetryingRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	inner := &scriptedFetcher{responses: []scripted{
		{err: errors.New("transient")},
		{resp: Response{StatusCode: http.StatusBadGateway}},
		{resp: Response{StatusCode: http.StatusOK, Body: []byte("payload")}},
	}}

	resp, err := NewRetrying(inner, fastPolicy(), zap.NewNop()).Fetch(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("payload"), resp.Body)
	require.Equal(t, 3, inner.calls)
}

func TestRetryingExhaustsAndReturnsFetchError(t *testing.T) {
	t.Parallel()

	inner := &scriptedFetcher{responses: []scripted{
		{resp: Response{StatusCode: http.StatusServiceUnavailable}},
	}}

	_, err := NewRetrying(inner, fastPolicy(), zap.NewNop()).Fetch(context.Background(), Request{URL: "https://example.com"})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	require.Equal(t, 3, fetchErr.Attempts)
	require.Equal(t, 3, inner.calls)
}

func TestRetryingPassesThroughTerminalStatus(t *testing.T) {
	t.Parallel()

	inner := &scriptedFetcher{responses: []scripted{
		{resp: Response{StatusCode: http.StatusNotFound, Body: []byte("missing")}},
	}}

	resp, err := NewRetrying(inner, fastPolicy(), zap.NewNop()).Fetch(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, 1, inner.calls)
}

func TestRetryingStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	inner := &scriptedFetcher{responses: []scripted{
		{err: errors.New("transient")},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRetrying(inner, fastPolicy(), zap.NewNop()).Fetch(ctx, Request{URL: "https://example.com"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
