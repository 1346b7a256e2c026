package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envNamed(name string) *Envelope {
	return &Envelope{EventID: newEventID(), Name: name}
}

func TestBoundedQueue_FIFOOrder(t *testing.T) {
	q := newBoundedQueue(0)
	for _, name := range []string{"a", "b", "c"} {
		require.Equal(t, admitAccepted, q.tryEnqueue(envNamed(name)))
	}
	for _, want := range []string{"a", "b", "c"} {
		env, ok := q.tryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, env.Name)
	}
	_, ok := q.tryDequeue()
	assert.False(t, ok)
}

func TestBoundedQueue_RejectsOverCapacity(t *testing.T) {
	q := newBoundedQueue(2)
	require.Equal(t, admitAccepted, q.tryEnqueue(envNamed("a")))
	require.Equal(t, admitAccepted, q.tryEnqueue(envNamed("b")))
	assert.Equal(t, admitFull, q.tryEnqueue(envNamed("c")))
	assert.Equal(t, 2, q.depth())
}

func TestBoundedQueue_PushFrontBatch_PrecedesQueuedItems(t *testing.T) {
	q := newBoundedQueue(0)
	require.Equal(t, admitAccepted, q.tryEnqueue(envNamed("newer")))
	q.pushFrontBatch([]*Envelope{envNamed("older-1"), envNamed("older-2")})

	order := []string{}
	for {
		env, ok := q.tryDequeue()
		if !ok {
			break
		}
		order = append(order, env.Name)
	}
	assert.Equal(t, []string{"older-1", "older-2", "newer"}, order)
}

func TestBoundedQueue_DequeueBlocksThenWakes(t *testing.T) {
	q := newBoundedQueue(0)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var got *Envelope
	var ok bool
	go func() {
		defer wg.Done()
		got, ok = q.dequeue(done)
	}()

	time.Sleep(20 * time.Millisecond) // give the goroutine time to block
	require.Equal(t, admitAccepted, q.tryEnqueue(envNamed("woken")))
	wg.Wait()

	require.True(t, ok)
	assert.Equal(t, "woken", got.Name)
}

func TestBoundedQueue_DequeueDrainsBeforeReportingClosed(t *testing.T) {
	q := newBoundedQueue(0)
	require.Equal(t, admitAccepted, q.tryEnqueue(envNamed("last")))
	q.close()

	env, ok := q.dequeue(make(chan struct{}))
	require.True(t, ok)
	assert.Equal(t, "last", env.Name)

	_, ok = q.dequeue(make(chan struct{}))
	assert.False(t, ok)
}

func TestBoundedQueue_CloseRejectsNewEnqueues(t *testing.T) {
	q := newBoundedQueue(0)
	q.close()
	assert.Equal(t, admitFull, q.tryEnqueue(envNamed("late")))
}
