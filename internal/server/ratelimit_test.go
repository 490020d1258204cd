package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_BurstThenDeny(t *testing.T) {
	b := newTokenBucket(1, 3)

	assert.True(t, b.allow())
	assert.True(t, b.allow())
	assert.True(t, b.allow())
	assert.False(t, b.allow(), "bucket is exhausted after the burst")
}

func TestTokenBucket_Refills(t *testing.T) {
	b := newTokenBucket(100, 1)

	assert.True(t, b.allow())
	assert.False(t, b.allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.allow(), "tokens refill at the configured rate")
}

func TestTokenBucket_CapsAtBurst(t *testing.T) {
	b := newTokenBucket(1000, 2)

	time.Sleep(10 * time.Millisecond)

	assert.True(t, b.allow())
	assert.True(t, b.allow())
	assert.False(t, b.allow(), "refill never exceeds the burst size")
}

func TestRateLimiter_CloseIsIdempotent(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RPS: 1, Burst: 1})

	rl.Close()
	rl.Close()
}

func TestRateLimitMiddleware_DeniesAfterBurst(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RPS: 1, Burst: 1})
	defer rl.Close()

	app := fiber.New()
	app.Use(rl.middleware())
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
