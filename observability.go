package orchestrator

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// observability is the orchestrator's Subject implementation (C8). It wires
// together the generic Observer/Subject pattern (observer.go), an optional
// slog trace observer (enableLogging), and an optional Prometheus-backed
// metrics observer (enableMetrics), following the teacher's
// ObservableApplication.NotifyObservers idiom of fire-and-forget goroutines
// with panic recovery for arbitrary user observers.
type observability struct {
	mu        sync.RWMutex
	observers map[string]*observerRegistration
	logger    *slog.Logger

	metrics *busMetrics // nil unless enableMetrics
}

type observerRegistration struct {
	observer   Observer
	eventTypes map[string]bool
}

func newObservability(cfg *Config) *observability {
	o := &observability{
		observers: make(map[string]*observerRegistration),
		logger:    cfg.Logger,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if cfg.EnableMetrics {
		o.metrics = newBusMetrics()
	}
	if cfg.EnableLogging {
		o.RegisterObserver(NewFunctionalObserver("orchestrator.trace-log", o.logTrace))
	}
	return o
}

func (o *observability) logTrace(_ context.Context, event ObserverEvent) error {
	o.logger.Debug(event.Type, "source", event.Source, "data", event.Data)
	return nil
}

func (o *observability) RegisterObserver(observer Observer, eventTypes ...string) error {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	o.mu.Lock()
	o.observers[observer.ObserverID()] = &observerRegistration{observer: observer, eventTypes: types}
	o.mu.Unlock()
	return nil
}

func (o *observability) UnregisterObserver(observer Observer) error {
	o.mu.Lock()
	delete(o.observers, observer.ObserverID())
	o.mu.Unlock()
	return nil
}

// notify fans event out to every interested observer. It never blocks the
// calling worker: each observer callback runs in its own goroutine, with a
// recovered panic logged rather than propagated (§4.8: "implementations must
// be non-blocking").
func (o *observability) notify(ctx context.Context, event ObserverEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, reg := range o.observers {
		reg := reg
		if len(reg.eventTypes) > 0 && !reg.eventTypes[event.Type] {
			continue
		}
		go func() {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("observer panicked", "observerID", reg.observer.ObserverID(), "event", event.Type, "panic", r)
				}
			}()
			if err := reg.observer.OnEvent(ctx, event); err != nil {
				o.logger.Error("observer error", "observerID", reg.observer.ObserverID(), "event", event.Type, "error", err)
			}
		}()
	}
}

// onEvent is called synchronously on the worker after every dispatch (§4.3
// step 6 / §4.8). It updates metrics inline (cheap, allocation-free counter
// increments) and fans out to registered observers asynchronously.
func (o *observability) onEvent(env *Envelope, result *Result) {
	if o.metrics != nil {
		o.metrics.observe(env, result)
	}
	if len(o.observers) == 0 {
		return
	}
	o.notify(context.Background(), ObserverEvent{
		Type:   EventTypeEnvelopeProcessed,
		Source: env.SourceID,
		Data:   result,
		Metadata: map[string]any{
			"targetId":     env.TargetID,
			"name":         env.Name,
			"deliveryMode": env.DeliveryMode.String(),
		},
	})
}

func (o *observability) onBusStat(index int, totalProcessed uint64, queuedDepth int) {
	if o.metrics != nil {
		o.metrics.observeBus(index, totalProcessed, queuedDepth)
	}
	if len(o.observers) == 0 {
		return
	}
	o.notify(context.Background(), ObserverEvent{
		Type: EventTypeBusStat,
		Data: map[string]any{"busIndex": index, "totalProcessed": totalProcessed, "queuedDepth": queuedDepth},
	})
}

func (o *observability) onDeferredDropped(env *Envelope) {
	if o.metrics != nil {
		o.metrics.droppedDeferred.Inc()
	}
	if len(o.observers) == 0 {
		return
	}
	o.notify(context.Background(), ObserverEvent{
		Type:     EventTypeDeferredDropped,
		Source:   env.SourceID,
		Metadata: map[string]any{"targetId": env.TargetID, "name": env.Name},
	})
}

// busMetrics holds the Prometheus collectors for C8's "Counters, per-bus
// stats" requirement, registered against a dedicated registry (not the
// global default) so multiple Orchestrator instances in the same process
// never collide on metric names.
type busMetrics struct {
	registry        *prometheus.Registry
	processed       *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
	dispatchSeconds *prometheus.HistogramVec
	droppedDeferred prometheus.Counter
}

func newBusMetrics() *busMetrics {
	reg := prometheus.NewRegistry()
	m := &busMetrics{
		registry: reg,
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_bus_events_processed_total",
			Help: "Events processed per bus.",
		}, []string{"bus"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orchestrator_bus_queue_depth",
			Help: "Current queued envelope count per bus.",
		}, []string{"bus"}),
		dispatchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchestrator_dispatch_duration_seconds",
			Help:    "Time spent in one Interpreter.Dispatch call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"errorKind"}),
		droppedDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_deferred_sends_dropped_total",
			Help: "Deferred sends dropped after exhausting the bounded retry policy.",
		}),
	}
	reg.MustRegister(m.processed, m.queueDepth, m.dispatchSeconds, m.droppedDeferred)
	return m
}

func (m *busMetrics) observe(env *Envelope, result *Result) {
	bus := busLabel(result.ProcessedBy)
	m.processed.WithLabelValues(bus).Inc()
	kind := string(result.ErrorKind)
	if kind == "" {
		kind = "success"
	}
	m.dispatchSeconds.WithLabelValues(kind).Observe(result.Duration.Seconds())
}

func (m *busMetrics) observeBus(index int, _ uint64, queuedDepth int) {
	m.queueDepth.WithLabelValues(busLabel(index)).Set(float64(queuedDepth))
}

func busLabel(index int) string {
	return strconv.Itoa(index)
}
