package orchestrator

import (
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// registry is the router's machineId → *machineRecord lookup table.
//
// Route lookups happen on every Send/SendFireAndForget/deferred-flush call,
// so they must never contend with lifecycle mutations. hashicorp's immutable
// radix tree gives a copy-on-write structure: register builds a new tree
// version and atomically swaps the root pointer (start, stop and dispose
// change only the record's own atomic lifecycle state, never the tree), while
// concurrent route() lookups only ever dereference a single atomic load of
// an immutable snapshot — the "atomic swap of the registry pointer" the spec
// calls an acceptable implementation of the read-mostly view (§4.4).
type registry struct {
	root atomic.Pointer[iradix.Tree]
	mu   sync.Mutex // serializes writers; readers never take this lock
}

func newRegistry() *registry {
	r := &registry{}
	r.root.Store(iradix.New())
	return r
}

func (r *registry) get(id string) (*machineRecord, bool) {
	tree := r.root.Load()
	v, ok := tree.Get([]byte(id))
	if !ok {
		return nil, false
	}
	rec, _ := v.(*machineRecord)
	return rec, rec != nil
}

// register inserts rec under id if absent. Returns the record that ends up
// registered (either rec, or the pre-existing one) and whether rec was the
// one inserted.
func (r *registry) register(id string, rec *machineRecord) (*machineRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tree := r.root.Load()
	if v, ok := tree.Get([]byte(id)); ok {
		existing, _ := v.(*machineRecord)
		return existing, false
	}
	newTree, _, _ := tree.Insert([]byte(id), rec)
	r.root.Store(newTree)
	return rec, true
}

func (r *registry) count() int {
	return r.root.Load().Len()
}

// forEach calls fn for every registered machine. fn must not mutate the
// registry; it is used by dispose().
func (r *registry) forEach(fn func(rec *machineRecord)) {
	tree := r.root.Load()
	tree.Root().Walk(func(_ []byte, v interface{}) bool {
		if rec, ok := v.(*machineRecord); ok {
			fn(rec)
		}
		return false
	})
}
