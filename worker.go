package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// eventBus is one worker in the pool: a single goroutine draining its own
// boundedQueue and serially dispatching into whichever machines it owns
// (§4.3, §4.4). Grounded on the teacher's durable_memory.go consumer loop —
// one goroutine, one queue, select on notEmpty/done — generalized from a
// single global subscriber list to per-machine interpreter dispatch.
type eventBus struct {
	index int
	queue *boundedQueue
	cfg   *Config
	obs   *observability
	pool  *busPool

	processed atomic.Uint64
	done      chan struct{}
	stopped   chan struct{}
}

func newEventBus(index int, cfg *Config, obs *observability, pool *busPool) *eventBus {
	maxDepth := 0
	if cfg.EnableBackpressure {
		maxDepth = cfg.MaxQueueDepth
	}
	return &eventBus{
		index:   index,
		queue:   newBoundedQueue(maxDepth),
		cfg:     cfg,
		obs:     obs,
		pool:    pool,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// run is the bus worker's main loop. It exits once queue.dequeue reports
// done is closed and there is nothing left to drain (§4 bus worker state
// machine: running → draining → stopped).
func (b *eventBus) run(reg *registry) {
	defer close(b.stopped)
	for {
		env, ok := b.queue.dequeue(b.done)
		if !ok {
			return
		}
		b.process(env, reg)
		b.processed.Add(1)
		b.obs.onBusStat(b.index, b.processed.Load(), b.queue.depth())
	}
}

// process implements §4.3 steps 1-6 for a single envelope: deadline check,
// registry lookup, lifecycle check, dispatch, result publication, and
// deferred-send flush.
func (b *eventBus) process(env *Envelope, reg *registry) {
	started := time.Now()

	if !env.Deadline.IsZero() && time.Now().After(env.Deadline) {
		b.publish(env, failureResult(env.EventID, ErrorKindTimeout, "deadline elapsed before processing"))
		return
	}

	rec, ok := reg.get(env.TargetID)
	if !ok {
		b.publish(env, failureResult(env.EventID, ErrorKindNotRegistered, "target machine not registered"))
		return
	}

	switch rec.lifecycle() {
	case lifecycleRegistered:
		// Not started yet: buffer for StartMachine to replay, rather than
		// blocking this worker or dropping the event (§3).
		rec.bufferPending(env)
		return
	case lifecycleStopped, lifecycleDisposed:
		b.publish(env, failureResult(env.EventID, ErrorKindMachineStopped, "machine is stopped"))
		return
	}

	result := b.dispatch(rec, env)
	result.Duration = time.Since(started)
	b.publish(env, result)
	b.obs.onEvent(env, result)
}

// dispatch invokes the interpreter and recovers from any panic raised by an
// action callback, per §6 and §7's actionException taxonomy entry.
func (b *eventBus) dispatch(rec *machineRecord, env *Envelope) (result *Result) {
	octx := newOrchestratedContext(rec.id)

	defer func() {
		if r := recover(); r != nil {
			result = failureResult(env.EventID, ErrorKindActionException, fmt.Sprintf("panic: %v", r))
		}
		b.flushDeferred(rec, octx.drain())
	}()

	newState, err := rec.interpreter.Dispatch(env.Name, env.Payload, octx)
	if err != nil {
		kind := ErrorKindActionException
		if errors.Is(err, ErrInvalidConfig) {
			kind = ErrorKindInvalidConfig
		}
		return failureResult(env.EventID, kind, err.Error())
	}
	return &Result{Success: true, NewState: newState, EventID: env.EventID, ProcessedBy: b.index}
}

// flushDeferred enqueues every cross-machine send an action requested,
// bounded-retrying on a momentarily full target queue before dropping and
// counting the drop (§4.7, resolving the spec's Open Question on deferred
// sends under backpressure). Retries run on this worker's own goroutine,
// intentionally: a burst of deferred sends pauses its own bus's throughput
// rather than another bus's, and the retry budget is small and bounded.
func (b *eventBus) flushDeferred(rec *machineRecord, sends []deferredSend) {
	if len(sends) == 0 {
		return
	}
	for _, send := range sends {
		env := newEnvelope(rec.id, send.targetID, send.name, send.payload, InternalDeferred, time.Time{}, nil)
		if !b.retryRoute(env) {
			b.obs.onDeferredDropped(env)
		}
	}
}

// retryRoute attempts to route env up to 3 times with exponential backoff
// (grounded on the binance adapter's NextBackOff retry loop), stopping early
// on any outcome other than routeFull.
func (b *eventBus) retryRoute(env *Envelope) bool {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Millisecond
	policy.MaxInterval = 20 * time.Millisecond

	for attempt := 0; attempt < 3; attempt++ {
		switch b.pool.route(context.Background(), env) {
		case routeAccepted:
			return true
		case routeFull:
			time.Sleep(policy.NextBackOff())
			continue
		default: // routeNotRegistered, routeShutdown: retrying will not help
			return false
		}
	}
	return false
}

// publish resolves env's correlation entry (if any) through the pool's
// table rather than calling env.ResponseSlot directly, so a successful
// resolution also removes the table entry (§3: "removed when the worker
// publishes the result... whichever is first"). A late publish that loses
// the race to a timeout/dispose removal is a harmless no-op: the entry is
// already gone, matching §4.6's "result is silently discarded".
func (b *eventBus) publish(env *Envelope, result *Result) {
	result.EventID = env.EventID
	result.ProcessedBy = b.index
	b.pool.corr.resolve(env.EventID, result)
}

// stopAccepting closes the queue to new admissions and signals the worker
// loop to drain and exit once it empties.
func (b *eventBus) stopAccepting() {
	b.queue.close()
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *eventBus) wait() {
	<-b.stopped
}
