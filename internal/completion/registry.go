package completion

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map"
)

// Entry is one registered spec as returned by Registry.List.
type Entry struct {
	Name string
	Spec CompletionSpec
}

// Registry maps command names to completion specs. Entries keep the order in
// which names were first registered; updating an existing name does not move
// it. An optional default spec answers lookups for unregistered names.
type Registry struct {
	mu          sync.RWMutex
	specs       *orderedmap.OrderedMap
	defaultSpec *CompletionSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: orderedmap.New(),
	}
}

// Install replaces or creates the spec for name.
func (r *Registry) Install(name string, spec CompletionSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := spec.Clone()
	r.specs.Set(name, &c)
}

// Merge applies patch to the spec for name, creating it if needed, and
// returns the resulting spec.
func (r *Registry) Merge(name string, patch CompletionSpec) CompletionSpec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.specs.Get(name); ok {
		spec := v.(*CompletionSpec)
		spec.Merge(patch)
		return spec.Clone()
	}

	c := patch.Clone()
	r.specs.Set(name, &c)
	return c.Clone()
}

// Get returns the spec registered under exactly name.
func (r *Registry) Get(name string) (CompletionSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.specs.Get(name)
	if !ok {
		return CompletionSpec{}, false
	}
	return v.(*CompletionSpec).Clone(), true
}

// Lookup returns the spec for name, falling back to the default spec. A false
// result means no completion is configured and the caller should complete
// filenames.
func (r *Registry) Lookup(name string) (CompletionSpec, bool) {
	if spec, ok := r.Get(name); ok {
		return spec, true
	}
	return r.Default()
}

// Remove deletes the spec for name and reports whether it existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.specs.Delete(name)
	return ok
}

// RemoveAll deletes every named spec and the default spec.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs = orderedmap.New()
	r.defaultSpec = nil
}

// List returns every named spec in registration order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, r.specs.Len())
	for pair := r.specs.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, Entry{
			Name: pair.Key.(string),
			Spec: pair.Value.(*CompletionSpec).Clone(),
		})
	}
	return entries
}

// Len returns the number of named specs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.specs.Len()
}

// SetDefault replaces the default spec.
func (r *Registry) SetDefault(spec CompletionSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := spec.Clone()
	r.defaultSpec = &c
}

// MergeDefault applies patch to the default spec, creating it if needed.
func (r *Registry) MergeDefault(patch CompletionSpec) CompletionSpec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaultSpec == nil {
		c := patch.Clone()
		r.defaultSpec = &c
	} else {
		r.defaultSpec.Merge(patch)
	}
	return r.defaultSpec.Clone()
}

// Default returns the default spec if one is registered.
func (r *Registry) Default() (CompletionSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultSpec == nil {
		return CompletionSpec{}, false
	}
	return r.defaultSpec.Clone(), true
}

// RemoveDefault deletes the default spec and reports whether it existed.
func (r *Registry) RemoveDefault() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := r.defaultSpec != nil
	r.defaultSpec = nil
	return ok
}
