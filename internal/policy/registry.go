package policy

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// DuplicateResourceError is returned when a resource type is registered
// twice. It indicates a startup configuration bug and should abort
// initialization.
type DuplicateResourceError struct {
	Resource ResourceType
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("policy already registered for resource %s", e.Resource)
}

// RegistryFrozenError is returned when registration is attempted after
// Freeze. It indicates a startup-ordering bug.
type RegistryFrozenError struct {
	Resource ResourceType
}

func (e *RegistryFrozenError) Error() string {
	return fmt.Sprintf("policy registry is frozen; cannot register resource %s", e.Resource)
}

// Registry maps resource types to their policy sets. It has a two-phase
// lifecycle: registration during single-threaded startup, then Freeze.
// Once frozen the map is never written again, so concurrent lookups on the
// request path need no locking.
type Registry struct {
	mu     sync.Mutex
	frozen atomic.Bool
	sets   map[string]*PolicySet
	types  map[string]ResourceType
}

// NewRegistry creates an empty, unfrozen Registry.
func NewRegistry() *Registry {
	return &Registry{
		sets:  make(map[string]*PolicySet),
		types: make(map[string]ResourceType),
	}
}

// Register attaches a policy set to a resource type. It fails with
// RegistryFrozenError after Freeze and with DuplicateResourceError if the
// resource type is already present.
func (r *Registry) Register(rt ResourceType, ps *PolicySet) error {
	if r.frozen.Load() {
		return &RegistryFrozenError{Resource: rt}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return &RegistryFrozenError{Resource: rt}
	}
	key := rt.Key()
	if _, exists := r.sets[key]; exists {
		return &DuplicateResourceError{Resource: rt}
	}
	r.sets[key] = ps
	r.types[key] = rt
	return nil
}

// Freeze ends the registration phase. It must be called before the first
// request is served; afterwards Register always fails and lookups are
// lock-free.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Lookup returns the policy set for a resource type. The second return is
// false when the resource has no explicit policy, which the enforcement
// point treats as deny-everything.
func (r *Registry) Lookup(rt ResourceType) (*PolicySet, bool) {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	ps, ok := r.sets[rt.Key()]
	return ps, ok
}

// Resources returns the registered resource types sorted by key, for
// introspection.
func (r *Registry) Resources() []ResourceType {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]ResourceType, 0, len(r.types))
	for _, rt := range r.types {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
