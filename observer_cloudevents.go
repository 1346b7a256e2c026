// CloudEvents integration for the Observer pattern, adapted from the
// teacher's observer_cloudevents.go. The orchestrator's own envelope/result
// pair is not CloudEvents-shaped (it has no room for a source/type/id model
// without fighting the spec's fixed Envelope fields), so rather than
// replacing Envelope this file offers an opt-in conversion for external
// trace sinks that want the CloudEvents wire shape instead of ObserverEvent.
package orchestrator

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// CloudEvent is an alias for the CloudEvents Event type.
type CloudEvent = cloudevents.Event

// CloudEventObserver extends Observer to also receive the CloudEvents shape.
type CloudEventObserver interface {
	Observer
	OnCloudEvent(ctx context.Context, event CloudEvent) error
}

// ToCloudEvent converts an ObserverEvent into a CloudEvent, reusing the same
// eventId generator as envelopes (newEventID, UUIDv7) so trace ids sort
// alongside the envelope ids they describe.
func ToCloudEvent(observerEvent ObserverEvent) CloudEvent {
	event := cloudevents.NewEvent()

	event.SetID(newEventID())
	event.SetSource(observerEvent.Source)
	event.SetType(observerEvent.Type)
	event.SetTime(observerEvent.Timestamp)
	event.SetSpecVersion(cloudevents.VersionV1)

	if observerEvent.Data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, observerEvent.Data)
	}
	for key, value := range observerEvent.Metadata {
		_ = event.SetExtension(key, value)
	}

	return event
}

// FunctionalCloudEventObserver adapts a plain function to CloudEventObserver,
// falling back to the ObserverEvent handler if no CloudEvent handler was
// supplied.
type FunctionalCloudEventObserver struct {
	*FunctionalObserver
	cloudEventHandler func(ctx context.Context, event CloudEvent) error
}

// NewFunctionalCloudEventObserver creates an observer that can handle both
// ObserverEvents and CloudEvents.
func NewFunctionalCloudEventObserver(
	id string,
	observerHandler func(ctx context.Context, event ObserverEvent) error,
	cloudEventHandler func(ctx context.Context, event CloudEvent) error,
) CloudEventObserver {
	return &FunctionalCloudEventObserver{
		FunctionalObserver: NewFunctionalObserver(id, observerHandler).(*FunctionalObserver),
		cloudEventHandler:  cloudEventHandler,
	}
}

func (f *FunctionalCloudEventObserver) OnCloudEvent(ctx context.Context, event CloudEvent) error {
	if f.cloudEventHandler != nil {
		return f.cloudEventHandler(ctx, event)
	}
	return f.OnEvent(ctx, ObserverEvent{Type: event.Type(), Source: event.Source(), Timestamp: event.Time()})
}
