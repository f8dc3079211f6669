// Package http implements the resilient HTTP transport: retry with
// exponential backoff, authentication-aware attempt handling, and
// two-tier response caching.
package http

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// RetryPolicy decides which failures are retried and how long to wait
// between attempts.
type RetryPolicy struct {
	maxAttempts   int
	baseDelay     time.Duration
	maxDelay      time.Duration
	jitter        float64
	retryStatuses map[int]struct{}
}

// NewRetryPolicy builds a policy from config, substituting defaults
// for zero fields.
func NewRetryPolicy(config spot.RetryConfig) *RetryPolicy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = constants.DefaultMaxAttempts
	}

	if config.BaseDelay <= 0 {
		config.BaseDelay = constants.DefaultRetryBaseDelay
	}

	if config.MaxDelay <= 0 {
		config.MaxDelay = constants.DefaultRetryMaxDelay
	}

	if config.Jitter < 0 || config.Jitter >= 1 {
		config.Jitter = constants.DefaultRetryJitter
	}

	statuses := config.RetryStatuses
	if len(statuses) == 0 {
		statuses = []int{429, 500, 502, 503, 504}
	}

	statusSet := make(map[int]struct{}, len(statuses))
	for _, status := range statuses {
		statusSet[status] = struct{}{}
	}

	return &RetryPolicy{
		maxAttempts:   config.MaxAttempts,
		baseDelay:     config.BaseDelay,
		maxDelay:      config.MaxDelay,
		jitter:        config.Jitter,
		retryStatuses: statusSet,
	}
}

// MaxAttempts returns the total attempt budget, first try included.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetryStatus reports whether a response status is retryable.
func (p *RetryPolicy) ShouldRetryStatus(status int) bool {
	_, ok := p.retryStatuses[status]

	return ok
}

// ShouldRetryError reports whether a transport-level error is
// retryable. Connection failures, timeouts, and truncated responses
// are; everything else (context cancellation included) is not.
func (p *RetryPolicy) ShouldRetryError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

// Delay returns the backoff before the given attempt (1-based: Delay(1)
// precedes the first retry). The exponential curve is clamped to the
// max delay, then jittered within ±jitter fraction.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	backoff := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(p.maxDelay) {
		backoff = float64(p.maxDelay)
	}

	if p.jitter > 0 {
		// Uniform in [1-jitter, 1+jitter).
		backoff *= 1 + p.jitter*(2*rand.Float64()-1) //nolint:gosec // jitter does not need crypto randomness
	}

	return time.Duration(backoff)
}

// Wait sleeps for the attempt's backoff, returning early with the
// context's error if it is done first.
func (p *RetryPolicy) Wait(ctx context.Context, attempt int) error {
	delay := p.Delay(attempt)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
