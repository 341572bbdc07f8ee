package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/formguard/pkg/schema"
)

// ErrNotFound is returned when no schema is registered under a name.
var ErrNotFound = errors.New("entity not found")

// Registry maps entity names to their object schemas.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]schema.ObjectRule
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]schema.ObjectRule),
	}
}

// Register adds a schema to the registry.
// If a schema with the same name exists, it is overwritten.
func (r *Registry) Register(name string, s schema.ObjectRule) error {
	if name == "" {
		return fmt.Errorf("register: empty entity name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = s
	return nil
}

// MustRegister is like Register but panics on error. Intended for package
// initialization.
func (r *Registry) MustRegister(name string, s schema.ObjectRule) {
	if err := r.Register(name, s); err != nil {
		panic(err)
	}
}

// Get looks up a schema by entity name.
func (r *Registry) Get(name string) (schema.ObjectRule, error) {
	r.mu.RLock()
	s, ok := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return schema.ObjectRule{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// Merge copies every schema from other, overwriting entries with the same name.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other == r {
		return
	}
	other.mu.RLock()
	snapshot := make(map[string]schema.ObjectRule, len(other.schemas))
	for k, v := range other.schemas {
		snapshot[k] = v
	}
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range snapshot {
		r.schemas[k] = v
	}
}
