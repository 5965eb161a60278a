package txregistry

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Registry answers constant-time lookups by transaction id and supports
// atomic whole-map reload — an in-flight lookup never observes a partially
// applied reload (§4.3, invariant behind P6).
type Registry struct {
	current atomic.Pointer[map[string]Descriptor]
}

// New builds an empty registry. Load or Reload must be called before use.
func New() *Registry {
	r := &Registry{}
	empty := map[string]Descriptor{}
	r.current.Store(&empty)
	return r
}

// Load parses path and installs it as the current map, replacing any prior
// content unconditionally (used at startup).
func (r *Registry) Load(path string) error {
	m, err := parseFile(path)
	if err != nil {
		return err
	}
	r.current.Store(&m)
	return nil
}

// Reload parses path and atomically swaps it in. Any invocation already in
// flight keeps resolving against the map it started with (the old *map
// value is never mutated, only replaced).
func (r *Registry) Reload(path string) error {
	return r.Load(path)
}

// Get resolves id against the currently installed map.
func (r *Registry) Get(id string) (Descriptor, bool) {
	m := *r.current.Load()
	d, ok := m[id]
	return d, ok
}

// All returns a snapshot copy of every descriptor, for admin introspection.
func (r *Registry) All() map[string]Descriptor {
	src := *r.current.Load()
	out := make(map[string]Descriptor, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func parseFile(path string) (map[string]Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("txregistry: reading %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("txregistry: parsing %s: %w", path, err)
	}
	out := make(map[string]Descriptor, len(doc.Transactions))
	seenParams := map[string]struct{}{}
	for id, d := range doc.Transactions {
		d.Id = id
		clear(seenParams)
		for _, p := range d.Parameters {
			if _, dup := seenParams[p.Name]; dup {
				return nil, fmt.Errorf("txregistry: transaction %q: duplicate parameter %q", id, p.Name)
			}
			seenParams[p.Name] = struct{}{}
		}
		out[id] = d
	}
	return out, nil
}
