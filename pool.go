package orchestrator

import (
	"context"
	"hash/fnv"
	"sync/atomic"

	"github.com/sourcegraph/conc"
)

// routeOutcome is the result of attempting to admit an envelope onto its
// target bus.
type routeOutcome int

const (
	routeAccepted routeOutcome = iota
	routeNotRegistered
	routeFull
	routeShutdown
)

// busPool owns the fixed-size slice of event buses, the shared registry, and
// the correlation table for outstanding SendAndWait calls. It is the
// generalization of the teacher's single-queue durable_memory bus to N
// independently-running buses, each pinned to a disjoint subset of machines
// by a stable hash of machineId (§4.4).
type busPool struct {
	buses    []*eventBus
	reg      *registry
	corr     *correlationTable
	cfg      *Config
	obs      *observability
	throttle *throttle

	draining atomic.Bool
	wg       conc.WaitGroup
}

func newBusPool(cfg *Config, obs *observability) *busPool {
	p := &busPool{
		reg:      newRegistry(),
		corr:     newCorrelationTable(),
		cfg:      cfg,
		obs:      obs,
		throttle: newThrottle(cfg),
	}
	p.buses = make([]*eventBus, cfg.PoolSize)
	for i := range p.buses {
		p.buses[i] = newEventBus(i, cfg, obs, p)
	}
	return p
}

func (p *busPool) start() {
	for _, bus := range p.buses {
		bus := bus
		p.wg.Go(func() { bus.run(p.reg) })
	}
}

// hashIndex maps a machineId to a bus index via FNV-1a, the one component of
// this package that is deliberately stdlib-only: it is a single pure
// function with no I/O, retry, or lifecycle surface for a third-party hash
// library to add value over, and FNV-1a is what hash/fnv exists for.
func (p *busPool) hashIndex(machineID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(machineID))
	return int(h.Sum32() % uint32(len(p.buses)))
}

func (p *busPool) registerMachine(id string, interp Interpreter) (*machineRecord, error) {
	if p.draining.Load() {
		return nil, ErrShutdown
	}
	rec := newMachineRecord(id, interp, p.hashIndex(id))
	existing, inserted := p.reg.register(id, rec)
	if !inserted {
		if existing.interpreter == interp {
			return existing, nil // same id, same interpreter: idempotent
		}
		return nil, wrapDuplicateID(id)
	}
	return existing, nil
}

func (p *busPool) startMachine(id string) error {
	rec, ok := p.reg.get(id)
	if !ok {
		return wrapNotRegistered(id)
	}
	if !rec.state.CompareAndSwap(int32(lifecycleRegistered), int32(lifecycleStarted)) {
		return nil // already started or past it; StartMachine is idempotent
	}
	if err := rec.interpreter.Start(); err != nil {
		rec.state.Store(int32(lifecycleRegistered))
		return err
	}
	// Replay events that arrived before this machine started, ahead of any
	// newer traffic already queued on its bus (§3).
	pending := rec.drainPending()
	if len(pending) > 0 {
		p.buses[rec.busIndex].queue.pushFrontBatch(pending)
	}
	return nil
}

func (p *busPool) stopMachine(id string) error {
	rec, ok := p.reg.get(id)
	if !ok {
		return wrapNotRegistered(id)
	}
	for {
		state := rec.lifecycle()
		if state == lifecycleStopped || state == lifecycleDisposed {
			return nil
		}
		if rec.state.CompareAndSwap(int32(state), int32(lifecycleStopped)) {
			break
		}
	}
	return rec.interpreter.Stop()
}

// route admits env onto its target's bus, applying throttling once that
// bus's queue nears capacity. It is the single chokepoint both external
// Send calls and the worker's own deferred-send flush go through.
//
// InternalDeferred envelopes skip the throttle: they are flushed from
// inside a bus worker's own goroutine (eventBus.flushDeferred), and
// throttle.admit can sleep the calling goroutine, which would stall that
// worker's entire bus (§4.7: "the wait is cooperative — it must not block a
// worker thread"). Deferred sends already have their own bounded-retry
// backoff policy (retryRoute) for a momentarily full target, so they do not
// need the watermark pacing a caller goroutine gets.
func (p *busPool) route(ctx context.Context, env *Envelope) routeOutcome {
	if p.draining.Load() {
		return routeShutdown
	}
	rec, ok := p.reg.get(env.TargetID)
	if !ok {
		return routeNotRegistered
	}
	bus := p.buses[rec.busIndex]

	if env.DeliveryMode != InternalDeferred {
		if err := p.throttle.admit(ctx, bus.queue.depth()); err != nil {
			return routeFull
		}
	}
	if bus.queue.tryEnqueue(env) == admitFull {
		return routeFull
	}
	return routeAccepted
}

// dispose flips the pool into draining, stops accepting new work on every
// bus, resolves every outstanding correlation with a shutdown result so
// SendAndWait callers are never left hanging (§8 invariant), waits for the
// workers to finish the envelopes already queued (their results are then
// discarded by the table), and finally drives every registered machine to
// its terminal disposed state (§3: "Machine: registered → started →
// optionally stopped → disposed").
func (p *busPool) dispose() {
	p.draining.Store(true)
	for _, bus := range p.buses {
		bus.stopAccepting()
	}
	p.corr.cancelAll(ErrorKindShutdown)
	p.wg.Wait()
	p.reg.forEach(func(rec *machineRecord) {
		prior := lifecycleState(rec.state.Swap(int32(lifecycleDisposed)))
		if prior != lifecycleStopped && prior != lifecycleDisposed {
			_ = rec.interpreter.Stop()
		}
	})
}

func (p *busPool) stats() Stats {
	stats := Stats{
		MachineCount:      p.reg.count(),
		PendingCorrelated: p.corr.pending(),
		Buses:             make([]BusStats, len(p.buses)),
	}
	for i, bus := range p.buses {
		stats.Buses[i] = BusStats{
			Index:     i,
			Processed: bus.processed.Load(),
			Depth:     bus.queue.depth(),
		}
	}
	return stats
}
