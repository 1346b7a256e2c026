package orchestrator

import (
	"context"

	"golang.org/x/time/rate"
)

// throttle paces admission into a bus once that bus's queue nears capacity;
// the pool holds one throttle, and so one limiter, shared by every bus (§4.7:
// "the orchestrator may delay admission rather than reject it outright, as
// long as the delay is bounded and the calling goroutine is never a bus
// worker"). It is only ever waited on from an external caller's own
// goroutine (Send/SendAndWait): busPool.route skips it entirely for
// InternalDeferred envelopes, so a bus worker flushing a deferred send
// never blocks itself on a throttle delay.
type throttle struct {
	limiter   *rate.Limiter
	watermark int // queue depth at/above which admission is paced
}

// newThrottle builds a no-op throttle when cfg.ThrottleDelay is zero, so the
// common case costs nothing beyond a always-true depth comparison.
func newThrottle(cfg *Config) *throttle {
	if cfg.ThrottleDelay <= 0 || !cfg.EnableBackpressure {
		return &throttle{watermark: -1}
	}
	every := rate.Every(cfg.ThrottleDelay)
	return &throttle{
		limiter:   rate.NewLimiter(every, 1),
		watermark: int(float64(cfg.MaxQueueDepth) * 0.9),
	}
}

// admit blocks the caller briefly when depth has crossed the watermark. It
// never blocks indefinitely: ctx carries the caller's own deadline, and each
// call reserves one token of a burst-1 limiter, so it waits at most one
// ThrottleDelay period beyond the callers already waiting ahead of it.
func (t *throttle) admit(ctx context.Context, depth int) error {
	if t.limiter == nil || depth < t.watermark {
		return nil
	}
	return t.limiter.Wait(ctx)
}

func (t *throttle) near(depth int) bool {
	return t.limiter != nil && depth >= t.watermark
}
