package orchestrator

import (
	"errors"
	"fmt"
)

// Error taxonomy. These are the stable, surfaced error kinds from the
// specification's error handling design: each has a parallel ErrorKind string
// constant (envelope.go) that is what a Result carries, and callers can use
// errors.Is against the error returned by
// SendFireAndForget/RegisterMachine/StartMachine/StopMachine.
var (
	ErrNotRegistered   = errors.New("orchestrator: target machine not registered")
	ErrMachineStopped  = errors.New("orchestrator: machine stopped")
	ErrQueueFull       = errors.New("orchestrator: queue full")
	ErrTimeout         = errors.New("orchestrator: timed out waiting for result")
	ErrShutdown        = errors.New("orchestrator: orchestrator is shutting down")
	ErrInvalidConfig   = errors.New("orchestrator: invalid configuration or structurally invalid event")
	ErrDuplicateID     = errors.New("orchestrator: machine id already registered with a different interpreter")
	ErrActionException = errors.New("orchestrator: action callback raised an error")
)

func wrapDuplicateID(id string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateID, id)
}

func wrapNotRegistered(id string) error {
	return fmt.Errorf("%w: %s", ErrNotRegistered, id)
}

func wrapInvalidConfig(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, reason)
}
