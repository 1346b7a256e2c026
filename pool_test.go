package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPool_HashIndexStable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 4
	pool := newBusPool(&cfg, newObservability(&cfg))

	first := pool.hashIndex("machine-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, pool.hashIndex("machine-42"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 4)
}

func TestBusPool_RouteNotRegistered(t *testing.T) {
	cfg := DefaultConfig()
	pool := newBusPool(&cfg, newObservability(&cfg))
	env := newEnvelope("", "ghost", "X", nil, FireAndForget, time.Time{}, nil)
	assert.Equal(t, routeNotRegistered, pool.route(context.Background(), env))
}

func TestBusPool_RouteRejectsAfterDispose(t *testing.T) {
	cfg := DefaultConfig()
	pool := newBusPool(&cfg, newObservability(&cfg))
	pool.start()

	rec, err := pool.registerMachine("m1", newFakeInterpreter())
	require.NoError(t, err)
	require.NoError(t, rec.interpreter.Start())
	rec.state.Store(int32(lifecycleStarted))

	pool.dispose()

	env := newEnvelope("", "m1", "X", nil, FireAndForget, time.Time{}, nil)
	assert.Equal(t, routeShutdown, pool.route(context.Background(), env))
}

func TestBusPool_DisposeTransitionsMachinesToDisposed(t *testing.T) {
	cfg := DefaultConfig()
	pool := newBusPool(&cfg, newObservability(&cfg))
	pool.start()

	started := newFakeInterpreter()
	rec, err := pool.registerMachine("started", started)
	require.NoError(t, err)
	require.NoError(t, pool.startMachine("started"))

	alreadyStopped := newFakeInterpreter()
	_, err = pool.registerMachine("stopped", alreadyStopped)
	require.NoError(t, err)
	require.NoError(t, pool.startMachine("stopped"))
	require.NoError(t, pool.stopMachine("stopped"))

	pool.dispose()

	assert.Equal(t, lifecycleDisposed, rec.lifecycle())
	assert.True(t, started.stopped, "dispose must stop a machine that was never explicitly stopped")
	assert.True(t, alreadyStopped.stopped)
}

// TestBusPool_RouteSkipsThrottleForDeferredSends guards against the worker
// goroutine stalling itself: an InternalDeferred envelope must be admitted
// without waiting on the throttle even when the target bus is above its
// watermark, while an ordinary FireAndForget envelope in the same situation
// is paced (§4.7).
func TestBusPool_RouteSkipsThrottleForDeferredSends(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 1
	cfg.EnableBackpressure = true
	cfg.MaxQueueDepth = 100
	cfg.ThrottleDelay = 150 * time.Millisecond
	pool := newBusPool(&cfg, newObservability(&cfg))

	rec, err := pool.registerMachine("m1", newFakeInterpreter())
	require.NoError(t, err)
	bus := pool.buses[rec.busIndex]
	for i := 0; i < 90; i++ {
		require.Equal(t, admitAccepted, bus.queue.tryEnqueue(newEnvelope("", "m1", "X", nil, FireAndForget, time.Time{}, nil)))
	}

	first := newEnvelope("", "m1", "X", nil, FireAndForget, time.Time{}, nil)
	require.Equal(t, routeAccepted, pool.route(context.Background(), first)) // consumes the limiter's single burst token

	start := time.Now()
	second := newEnvelope("", "m1", "X", nil, FireAndForget, time.Time{}, nil)
	require.Equal(t, routeAccepted, pool.route(context.Background(), second))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "a non-deferred send above the watermark with an exhausted burst token must be paced")

	start = time.Now()
	deferred := newEnvelope("m1", "m1", "X", nil, InternalDeferred, time.Time{}, nil)
	require.Equal(t, routeAccepted, pool.route(context.Background(), deferred))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "a deferred send must never be paced by the throttle, even above the watermark")
}
