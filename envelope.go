package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryMode selects how an envelope is routed and whether it carries a
// response slot.
type DeliveryMode int

const (
	// AwaitResult is used by SendAndWait: the envelope carries a correlation
	// slot and the caller blocks until the worker publishes a result or the
	// deadline elapses.
	AwaitResult DeliveryMode = iota
	// FireAndForget carries no response slot; the caller only learns whether
	// the envelope was accepted or rejected by the router.
	FireAndForget
	// InternalDeferred is used exclusively for cross-machine sends requested
	// from inside an action callback and flushed by the worker after dispatch
	// returns (see OrchestratedContext).
	InternalDeferred
)

func (m DeliveryMode) String() string {
	switch m {
	case AwaitResult:
		return "awaitResult"
	case FireAndForget:
		return "fireAndForget"
	case InternalDeferred:
		return "internalDeferred"
	default:
		return "unknown"
	}
}

// ErrorKind is the stable taxonomy tag carried on a Result (§7 of the spec).
type ErrorKind string

const (
	ErrorKindNone            ErrorKind = ""
	ErrorKindNotRegistered   ErrorKind = "notRegistered"
	ErrorKindMachineStopped  ErrorKind = "machineStopped"
	ErrorKindQueueFull       ErrorKind = "queueFull"
	ErrorKindTimeout         ErrorKind = "timeout"
	ErrorKindShutdown        ErrorKind = "shutdown"
	ErrorKindInvalidConfig   ErrorKind = "invalidConfig"
	ErrorKindActionException ErrorKind = "actionException"
)

// Envelope is an immutable record carrying a single event submission through
// the orchestrator. SendAndWait attaches ResponseSlot after construction but
// before admission; once admitted to a queue it is never mutated, and
// cross-machine deferred sends create brand new envelopes rather than
// editing this one.
type Envelope struct {
	EventID      string
	SourceID     string
	TargetID     string
	Name         string
	Payload      any
	DeliveryMode DeliveryMode
	Deadline     time.Time // zero value means "no deadline" (fire-and-forget, deferred)
	ResponseSlot *correlationSlot
	EnqueuedAt   time.Time
}

// newEventID produces a time-ordered, globally unique identifier. UUIDv7
// embeds a millisecond timestamp so ids sort roughly by creation order,
// which is convenient for tracing; it falls back to UUIDv4 if the host
// clock/entropy source misbehaves.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func newEnvelope(source, target, name string, payload any, mode DeliveryMode, deadline time.Time, slot *correlationSlot) *Envelope {
	return &Envelope{
		EventID:      newEventID(),
		SourceID:     source,
		TargetID:     target,
		Name:         name,
		Payload:      payload,
		DeliveryMode: mode,
		Deadline:     deadline,
		ResponseSlot: slot,
		EnqueuedAt:   time.Now(),
	}
}

// Result is the outcome of processing one envelope.
type Result struct {
	Success      bool
	NewState     string
	ErrorKind    ErrorKind
	ErrorMessage string
	ProcessedBy  int
	EventID      string
	Duration     time.Duration
}

func failureResult(eventID string, kind ErrorKind, msg string) *Result {
	return &Result{EventID: eventID, Success: false, ErrorKind: kind, ErrorMessage: msg}
}
