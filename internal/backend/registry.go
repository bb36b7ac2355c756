package backend

import (
	"fmt"
	"sync"
)

// Registry holds named candidate backends and enforces first-writer-wins
// per name slot (SPEC_FULL.md supplemented feature 2): a process may build
// up Local/Pointer/Remote/Null/Sleep candidates at init time and pick one
// later, but re-registering the same name twice is a configuration error,
// matching spec.md §4.C's "a process registers exactly one backend" applied
// per slot instead of globally.
type Registry struct {
	mu       sync.Mutex
	backends map[string]Backend
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b under its own Name(). Returns an error if that name is
// already occupied.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("backend: %q already registered", name)
	}
	r.backends[name] = b
	return nil
}

// Select returns the backend registered under name, or an error if absent.
func (r *Registry) Select(name string) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("backend: %q not registered", name)
	}
	return b, nil
}

// Names returns the registered backend names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.backends))
	for name := range r.backends {
		out = append(out, name)
	}
	return out
}
