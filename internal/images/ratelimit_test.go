package images

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitResponse(status, remaining, limit int, reset time.Time) *http.Response {
	header := http.Header{}
	header.Set(HeaderRateRemaining, strconv.Itoa(remaining))
	header.Set(HeaderRateLimit, strconv.Itoa(limit))
	header.Set(HeaderRateReset, strconv.FormatInt(reset.Unix(), 10))
	return &http.Response{StatusCode: status, Header: header}
}

func TestRateLimiter_InitialState(t *testing.T) {
	r := NewRateLimiter()

	assert.Equal(t, GitHubRateLimit, r.Remaining())
	assert.Equal(t, GitHubRateLimit, r.Limit())
	assert.True(t, r.ResetTime().IsZero())
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	r := NewRateLimiter()
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	r.UpdateFromResponse(rateLimitResponse(200, 4200, 5000, reset))

	assert.Equal(t, 4200, r.Remaining())
	assert.Equal(t, 5000, r.Limit())
	assert.Equal(t, reset.Unix(), r.ResetTime().Unix())
}

func TestRateLimiter_UpdateFromResponse_IgnoresMissingHeaders(t *testing.T) {
	r := NewRateLimiter()

	r.UpdateFromResponse(&http.Response{StatusCode: 200, Header: http.Header{}})

	assert.Equal(t, GitHubRateLimit, r.Remaining())
	assert.Equal(t, GitHubRateLimit, r.Limit())
}

func TestRateLimiter_CheckRateLimit(t *testing.T) {
	t.Run("ok response", func(t *testing.T) {
		r := NewRateLimiter()
		err := r.CheckRateLimit(rateLimitResponse(200, 4999, 5000, time.Now()))
		assert.NoError(t, err)
	})

	t.Run("429 is rate limited", func(t *testing.T) {
		r := NewRateLimiter()
		reset := time.Now().Add(time.Hour)

		err := r.CheckRateLimit(rateLimitResponse(429, 0, 5000, reset))

		var rateErr *RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, 0, rateErr.Remaining)
		assert.Equal(t, 5000, rateErr.Limit)
	})

	t.Run("403 with zero remaining is rate limited", func(t *testing.T) {
		r := NewRateLimiter()

		err := r.CheckRateLimit(rateLimitResponse(403, 0, 5000, time.Now().Add(time.Hour)))

		assert.True(t, IsRateLimited(err))
	})

	t.Run("403 with quota left is not rate limited", func(t *testing.T) {
		r := NewRateLimiter()

		err := r.CheckRateLimit(rateLimitResponse(403, 100, 5000, time.Now()))

		assert.NoError(t, err)
	})

	t.Run("retry-after overrides reset time", func(t *testing.T) {
		r := NewRateLimiter()
		resp := rateLimitResponse(429, 0, 5000, time.Now())
		resp.Header.Set(HeaderRetryAfter, "120")

		err := r.CheckRateLimit(resp)

		var rateErr *RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.WithinDuration(t, time.Now().Add(120*time.Second), rateErr.ResetAt, 5*time.Second)
	})
}

func TestRateLimiter_WaitRespectsCancelledContext(t *testing.T) {
	r := NewRateLimiter()
	// Force the reactive path to wait for a far-off reset.
	r.UpdateFromResponse(rateLimitResponse(200, 0, 5000, time.Now().Add(time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Wait(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
