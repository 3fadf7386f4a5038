package fetcher

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ExponentialRetryPolicy implements jittered exponential backoff for
// idempotent GETs.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy with sane defaults.
func NewExponentialRetryPolicy() *ExponentialRetryPolicy {
	return &ExponentialRetryPolicy{
		maxAttempts: 3,
		baseDelay:   250 * time.Millisecond,
		maxDelay:    5 * time.Second,
	}
}

// ShouldRetry decides whether another attempt is warranted. Transient
// transport errors, 5xx and 429 retry; other terminal statuses do not.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, statusCode int, attempt int) bool {
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if err != nil {
		return true
	}
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500
}

// Backoff returns the wait duration before the next attempt.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *ExponentialRetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Retrying wraps a Fetcher with the retry policy. Retry counters are
// local to each call; the wrapper holds no mutable state.
type Retrying struct {
	inner  Fetcher
	policy *ExponentialRetryPolicy
	logger *zap.Logger
}

// NewRetrying constructs a retrying Fetcher.
func NewRetrying(inner Fetcher, policy *ExponentialRetryPolicy, logger *zap.Logger) *Retrying {
	if policy == nil {
		policy = NewExponentialRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{inner: inner, policy: policy, logger: logger}
}

// Fetch executes the request, retrying per policy. A usable terminal
// response passes through untouched; exhaustion yields a FetchError.
func (r *Retrying) Fetch(ctx context.Context, request Request) (Response, error) {
	var (
		resp    Response
		lastErr error
	)
	attempt := 0
	for {
		resp, lastErr = r.inner.Fetch(ctx, request)
		attempt++
		if !r.policy.ShouldRetry(lastErr, resp.StatusCode, attempt) {
			break
		}
		wait := r.policy.Backoff(attempt)
		r.logger.Debug("retrying fetch",
			zap.String("url", request.URL),
			zap.Int("attempt", attempt),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", wait),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return Response{}, &FetchError{URL: request.URL, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
	if lastErr != nil {
		return Response{}, &FetchError{URL: request.URL, StatusCode: resp.StatusCode, Attempts: attempt, Err: lastErr}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Response{}, &FetchError{URL: request.URL, StatusCode: resp.StatusCode, Attempts: attempt}
	}
	return resp, nil
}
