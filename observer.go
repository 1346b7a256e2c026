// Observer pattern interfaces for the orchestrator's observability hooks
// (C8). Adapted from the teacher's observer.go: trimmed to the orchestrator's
// own event vocabulary and a FunctionalObserver convenience type, dropping
// the application/module/service lifecycle events and ObservableModule glue
// that belonged to the teacher's DI container, which this module has no use
// for.
package orchestrator

import (
	"context"
	"time"
)

// ObserverEvent is a standardized notification shape for the Observer
// pattern.
type ObserverEvent struct {
	Type      string
	Source    string
	Data      any
	Metadata  map[string]any
	Timestamp time.Time
}

// Event type constants emitted by the orchestrator's built-in observability.
const (
	EventTypeEnvelopeProcessed = "orchestrator.envelope.processed"
	EventTypeBusStat           = "orchestrator.bus.stat"
	EventTypeDeferredDropped   = "orchestrator.deferred.dropped"
)

// Observer is the minimal sink interface from §4.8: onEvent/onBusStat are
// folded into OnEvent, distinguished by ObserverEvent.Type. Each callback
// runs in its own goroutine started by the notifier, never on the bus worker
// goroutine itself.
type Observer interface {
	OnEvent(ctx context.Context, event ObserverEvent) error
	ObserverID() string
}

// Subject lets callers register any number of observers. §4.8 only asks for
// a single sink; this is additive.
type Subject interface {
	RegisterObserver(observer Observer, eventTypes ...string) error
	UnregisterObserver(observer Observer) error
}

// FunctionalObserver adapts a plain function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event ObserverEvent) error
}

// NewFunctionalObserver creates an Observer backed by handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event ObserverEvent) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event ObserverEvent) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
