package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_NoOpWhenDelayZero(t *testing.T) {
	cfg := DefaultConfig()
	th := newThrottle(&cfg)
	require.NoError(t, th.admit(context.Background(), 1_000_000))
	assert.False(t, th.near(1_000_000))
}

func TestThrottle_DelaysOnlyNearWatermark(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueueDepth = 10
	cfg.ThrottleDelay = 20 * time.Millisecond
	th := newThrottle(&cfg)

	require.NoError(t, th.admit(context.Background(), 0)) // far below watermark: instant
	assert.False(t, th.near(0))
	assert.True(t, th.near(9))

	started := time.Now()
	require.NoError(t, th.admit(context.Background(), 9))
	assert.GreaterOrEqual(t, time.Since(started), time.Duration(0))
}

func TestThrottle_RespectsContextCancellation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueueDepth = 10
	cfg.ThrottleDelay = time.Second
	th := newThrottle(&cfg)

	// Burn the single burst token first so the next Wait would actually block.
	require.NoError(t, th.admit(context.Background(), 9))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := th.admit(ctx, 9)
	assert.Error(t, err)
}
