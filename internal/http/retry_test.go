package http_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spothttp "github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

func TestRetryPolicyDefaults(t *testing.T) {
	t.Parallel()

	policy := spothttp.NewRetryPolicy(spot.RetryConfig{})

	assert.Equal(t, 4, policy.MaxAttempts())
	assert.True(t, policy.ShouldRetryStatus(429))
	assert.True(t, policy.ShouldRetryStatus(500))
	assert.True(t, policy.ShouldRetryStatus(503))
	assert.False(t, policy.ShouldRetryStatus(400))
	assert.False(t, policy.ShouldRetryStatus(401))
	assert.False(t, policy.ShouldRetryStatus(404))
	assert.False(t, policy.ShouldRetryStatus(200))
}

func TestRetryPolicyDelayBounds(t *testing.T) {
	t.Parallel()

	policy := spothttp.NewRetryPolicy(spot.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    400 * time.Millisecond,
		Jitter:      0.2,
	})

	for attempt := 1; attempt <= 5; attempt++ {
		delay := policy.Delay(attempt)

		// Exponential curve clamped to max, then jittered ±20%.
		expected := float64(100*time.Millisecond) * float64(int(1)<<(attempt-1))
		if expected > float64(400*time.Millisecond) {
			expected = float64(400 * time.Millisecond)
		}

		assert.GreaterOrEqual(t, float64(delay), expected*0.8, "attempt %d", attempt)
		assert.LessOrEqual(t, float64(delay), expected*1.2, "attempt %d", attempt)
	}
}

func TestRetryPolicyDelayClamping(t *testing.T) {
	t.Parallel()

	exact := spothttp.NewRetryPolicy(spot.RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    200 * time.Millisecond,
		Jitter:      0.000001,
	})

	assert.InDelta(t, float64(50*time.Millisecond), float64(exact.Delay(1)), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(exact.Delay(2)), float64(time.Millisecond))
	assert.InDelta(t, float64(200*time.Millisecond), float64(exact.Delay(3)), float64(time.Millisecond))
	assert.InDelta(t, float64(200*time.Millisecond), float64(exact.Delay(4)), float64(time.Millisecond))
}

func TestRetryPolicyShouldRetryError(t *testing.T) {
	t.Parallel()

	policy := spothttp.NewRetryPolicy(spot.RetryConfig{})

	assert.False(t, policy.ShouldRetryError(nil))
	assert.False(t, policy.ShouldRetryError(context.Canceled))
	assert.False(t, policy.ShouldRetryError(context.DeadlineExceeded))
	assert.False(t, policy.ShouldRetryError(errors.New("boom")))

	assert.True(t, policy.ShouldRetryError(io.ErrUnexpectedEOF))
	assert.True(t, policy.ShouldRetryError(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
}

func TestRetryPolicyWaitHonorsContext(t *testing.T) {
	t.Parallel()

	policy := spothttp.NewRetryPolicy(spot.RetryConfig{
		BaseDelay: 10 * time.Second,
		MaxDelay:  10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := policy.Wait(ctx, 1)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
