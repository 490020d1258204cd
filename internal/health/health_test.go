package health

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestReady_AllOK(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) Status { return StatusOK })
	c.Register("groq", func(ctx context.Context) Status { return StatusOK })

	ready, results := c.Ready(context.Background())

	assert.True(t, ready)
	assert.Equal(t, StatusOK, results["store"])
	assert.Equal(t, StatusOK, results["groq"])
}

func TestReady_DegradedStillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("groq", func(ctx context.Context) Status { return StatusDegraded })

	ready, results := c.Ready(context.Background())

	assert.True(t, ready, "degraded dependencies do not fail readiness")
	assert.Equal(t, StatusDegraded, results["groq"])
}

func TestReady_DownFails(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) Status { return StatusDown })

	ready, _ := c.Ready(context.Background())

	assert.False(t, ready)
}

func TestReady_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())

	ready, results := c.Ready(context.Background())

	assert.True(t, ready)
	assert.Empty(t, results)
}
