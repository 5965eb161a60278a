package loader

import (
	"sync"

	"github.com/neo6systems/neo6/internal/pluginabi"
)

// state tracks a loaded plugin's lifecycle per §3: registered → ready →
// active → draining → destroyed.
type state int

const (
	stateReady state = iota
	stateActive
	stateDraining
	stateDestroyed
)

// entry is one loaded plugin's bookkeeping: its vtable, its handle and the
// wait group tracking outstanding Invoke calls so Destroy is only ever
// called once every call has returned.
type entry struct {
	vtable *pluginabi.VTable
	handle pluginabi.Handle

	mu    sync.Mutex
	state state
	inFlight sync.WaitGroup
}

// Registry is an immutable snapshot of loaded plugins keyed by protocol
// name. A new Registry is built and swapped in wholesale on reload so that
// concurrent invokes never observe a mixed old/new state (P6).
type Registry struct {
	entries map[string]*entry
}

func newRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Names returns every protocol name currently registered, for admin
// introspection (GetProtocols).
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

func (r *Registry) lookup(name string) (*entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Registered reports whether protocol name currently resolves to a loaded
// plugin, for callers that need to check existence without invoking (the
// Router's Step 2 plugin resolution ahead of parameter validation).
func (r *Registry) Registered(name string) bool {
	_, ok := r.entries[name]
	return ok
}
