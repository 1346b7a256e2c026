package orchestrator

// deferredSend is one cross-machine send requested from inside an action
// callback. It is recorded, never executed, until the worker flushes it
// after dispatch returns (§4.5).
type deferredSend struct {
	targetID string
	name     string
	payload  any
}

// OrchestratedContext is the narrow capability passed to every Interpreter
// Dispatch call. It deliberately exposes only deferred-send requests and
// never a reference back to the Orchestrator: this is what makes in-action
// cross-machine sends deadlock-free at the type level (§9 "Design Notes" —
// the source's synchronous action callbacks closed over the orchestrator and
// called back into it directly; here that capability simply does not exist).
//
// A single OrchestratedContext instance is only ever touched by the one
// worker goroutine executing dispatch for that invocation, so its buffer
// needs no locking.
type OrchestratedContext struct {
	machineID string
	sends     []deferredSend
}

func newOrchestratedContext(machineID string) *OrchestratedContext {
	return &OrchestratedContext{machineID: machineID}
}

// RequestSend appends a cross-machine send to the buffer. It does not block,
// does not return a result, and has no visible effect until the current
// dispatch call returns.
func (c *OrchestratedContext) RequestSend(targetID, name string, payload any) {
	c.sends = append(c.sends, deferredSend{targetID: targetID, name: name, payload: payload})
}

// RequestSelfSend is shorthand for RequestSend(currentMachineId, ...).
func (c *OrchestratedContext) RequestSelfSend(name string, payload any) {
	c.RequestSend(c.machineID, name, payload)
}

// drain returns the buffered sends in recorded order and clears the buffer.
func (c *OrchestratedContext) drain() []deferredSend {
	sends := c.sends
	c.sends = nil
	return sends
}
