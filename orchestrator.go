// Package orchestrator implements an event bus orchestrator for a pool of
// independently-running finite-state-machine interpreters: each registered
// machine is pinned to one of a fixed number of buses, every bus serializes
// dispatch for the machines it owns, and cross-machine sends requested from
// inside an action callback are deferred until after dispatch returns so two
// machines can never deadlock sending to each other synchronously.
package orchestrator

import (
	"context"
	"time"
)

// Stats is a point-in-time snapshot of the orchestrator's internal state,
// suitable for health checks or periodic logging (§4.8).
type Stats struct {
	MachineCount      int
	PendingCorrelated int
	Buses             []BusStats
}

// BusStats is one bus's contribution to a Stats snapshot.
type BusStats struct {
	Index     int
	Processed uint64
	Depth     int
}

// Orchestrator is the facade described in §3/§5: register machines, start
// and stop them, send events (optionally awaiting a result), and observe or
// dispose of the whole pool.
type Orchestrator struct {
	cfg  Config
	pool *busPool
	obs  *observability
}

// New constructs an Orchestrator. Callers usually start from DefaultConfig()
// and apply Options, or pass a Config already populated (e.g. by the feeders
// sub-package). Zero-valued PoolSize, DefaultTimeout and Logger fields (and
// MaxQueueDepth when backpressure is enabled) are filled with defaults, so a
// zero Config is accepted; it leaves backpressure off.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs := newObservability(&cfg)
	pool := newBusPool(&cfg, obs)
	pool.start()

	return &Orchestrator{cfg: cfg, pool: pool, obs: obs}, nil
}

// RegisterMachine adds interp under id, pinning it to a bus for its entire
// lifetime (§3). Registering an id again with the same interpreter is a
// no-op; registering it with a different interpreter returns ErrDuplicateID.
// It is not an error to register many machines before starting any of them.
func (o *Orchestrator) RegisterMachine(id string, interp Interpreter) error {
	_, err := o.pool.registerMachine(id, interp)
	return err
}

// StartMachine calls interp.Start and replays any events that were sent to
// id before it started, in arrival order, ahead of newer traffic queued on
// its bus. Idempotent: starting an already-started machine is a no-op.
func (o *Orchestrator) StartMachine(id string) error {
	return o.pool.startMachine(id)
}

// StopMachine transitions id to the stopped state. Already-queued events for
// it are answered with ErrorKindMachineStopped rather than dispatched.
func (o *Orchestrator) StopMachine(id string) error {
	return o.pool.stopMachine(id)
}

// SendFireAndForget enqueues an event for delivery to targetID and returns
// as soon as the router has accepted or rejected it; it never waits for the
// event to be dispatched.
func (o *Orchestrator) SendFireAndForget(ctx context.Context, targetID, name string, payload any) error {
	env := newEnvelope("", targetID, name, payload, FireAndForget, time.Time{}, nil)
	return o.admit(ctx, env)
}

// SendAndWait enqueues an event and blocks until either a worker publishes
// its Result or timeout elapses, whichever comes first. A timeout of zero
// means "don't wait at all": the event may still be routed and processed,
// but SendAndWait returns an immediate ErrorKindTimeout result and discards
// whatever the worker later publishes (§4.6).
func (o *Orchestrator) SendAndWait(ctx context.Context, targetID, name string, payload any, timeout time.Duration) *Result {
	if timeout < 0 {
		timeout = o.cfg.DefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	env := newEnvelope("", targetID, name, payload, AwaitResult, deadline, nil)
	slot := o.pool.corr.register(env.EventID)
	env.ResponseSlot = slot

	if timeout == 0 {
		o.pool.corr.remove(env.EventID)
		if err := o.admit(ctx, env); err != nil {
			return resultForAdmitError(env.EventID, err)
		}
		return failureResult(env.EventID, ErrorKindTimeout, "zero timeout: result discarded")
	}

	if err := o.admit(ctx, env); err != nil {
		o.pool.corr.remove(env.EventID)
		return resultForAdmitError(env.EventID, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-slot.done:
		return slot.result.Load()
	case <-timer.C:
		o.pool.corr.remove(env.EventID)
		return failureResult(env.EventID, ErrorKindTimeout, "timed out waiting for result")
	case <-ctx.Done():
		o.pool.corr.remove(env.EventID)
		return failureResult(env.EventID, ErrorKindTimeout, ctx.Err().Error())
	}
}

func (o *Orchestrator) admit(ctx context.Context, env *Envelope) error {
	switch o.pool.route(ctx, env) {
	case routeAccepted:
		return nil
	case routeNotRegistered:
		return wrapNotRegistered(env.TargetID)
	case routeFull:
		return ErrQueueFull
	default:
		return ErrShutdown
	}
}

func resultForAdmitError(eventID string, err error) *Result {
	switch {
	case err == ErrQueueFull:
		return failureResult(eventID, ErrorKindQueueFull, err.Error())
	case err == ErrShutdown:
		return failureResult(eventID, ErrorKindShutdown, err.Error())
	default:
		return failureResult(eventID, ErrorKindNotRegistered, err.Error())
	}
}

// Stats returns a snapshot of per-bus throughput and queue depth, plus the
// number of machines registered and SendAndWait calls still outstanding.
func (o *Orchestrator) Stats() Stats {
	return o.pool.stats()
}

// RegisterObserver adds an observability sink; see Subject.
func (o *Orchestrator) RegisterObserver(observer Observer, eventTypes ...string) error {
	return o.obs.RegisterObserver(observer, eventTypes...)
}

// UnregisterObserver removes a previously registered sink.
func (o *Orchestrator) UnregisterObserver(observer Observer) error {
	return o.obs.UnregisterObserver(observer)
}

// Dispose resolves every outstanding SendAndWait call with an
// ErrorKindShutdown result, drains every bus, and waits for in-flight
// envelopes to complete. After Dispose returns, SendFireAndForget and
// RegisterMachine fail with ErrShutdown and SendAndWait returns an
// ErrorKindShutdown result; StartMachine and StopMachine on a disposed
// machine return nil without effect.
func (o *Orchestrator) Dispose() {
	o.pool.dispose()
}
