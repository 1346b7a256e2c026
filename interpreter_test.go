package orchestrator

import (
	"fmt"
	"sync"
)

// fakeInterpreter is a minimal, concurrency-safe test double used across the
// package's test files. Dispatch appends the event name to history, returns
// failWith if set, otherwise calls the optional onDispatch hook (which tests
// use to request deferred sends through octx, exercising §4.5) and moves the
// state to the event name.
type fakeInterpreter struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	state    string
	history  []string
	failWith error

	onDispatch func(name string, payload any, octx *OrchestratedContext)
}

func newFakeInterpreter() *fakeInterpreter {
	return &fakeInterpreter{state: "idle"}
}

func (f *fakeInterpreter) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.state = "started"
	return nil
}

func (f *fakeInterpreter) Dispatch(name string, payload any, octx *OrchestratedContext) (string, error) {
	f.mu.Lock()
	f.history = append(f.history, name)
	fail := f.failWith
	hook := f.onDispatch
	f.mu.Unlock()

	if fail != nil {
		return "", fail
	}
	if hook != nil {
		hook(name, payload, octx)
	}

	f.mu.Lock()
	f.state = name
	state := f.state
	f.mu.Unlock()
	return state, nil
}

func (f *fakeInterpreter) ActiveStateNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []string{f.state}
}

func (f *fakeInterpreter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeInterpreter) historySnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.history))
	copy(out, f.history)
	return out
}

// panicInterpreter always panics from Dispatch, exercising the worker's
// recover path.
type panicInterpreter struct{ fakeInterpreter }

func (p *panicInterpreter) Dispatch(name string, payload any, octx *OrchestratedContext) (string, error) {
	panic(fmt.Sprintf("boom: %s", name))
}
