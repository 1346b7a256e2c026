package orchestrator

// Interpreter is the minimal external contract the orchestrator consumes
// (§6). It never parses JSON and never manages transition tables, guards, or
// entry/exit actions itself — that is entirely the interpreter's
// responsibility; the orchestrator only sequences calls into it per machine
// and collects the deferred sends its actions request.
type Interpreter interface {
	// Start initializes the interpreter and computes its initial active
	// state set.
	Start() error

	// Dispatch processes one event synchronously: it computes transitions
	// and invokes entry/exit actions with octx, then returns a string
	// describing the active state set after processing.
	//
	// An error wrapping ErrInvalidConfig is reported as ErrorKindInvalidConfig
	// (the event's payload did not satisfy the interpreter's contract); any
	// other error, or a panic, is reported as ErrorKindActionException and
	// does not stop the worker.
	Dispatch(name string, payload any, octx *OrchestratedContext) (newState string, err error)

	// ActiveStateNames reports the currently active state set.
	ActiveStateNames() []string

	// Stop is terminal. Subsequent Dispatch calls must fail cleanly (the
	// orchestrator itself never calls Dispatch again after Stop, but a
	// well-behaved interpreter should not assume that).
	Stop() error
}
