package jobs

import (
	"fmt"
	"sync"
)

// Registry is the catalogue of named jobs the service can run
type Registry struct {
	mu    sync.RWMutex
	specs map[string]JobSpec
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]JobSpec)}
}

// Register adds a named job. Names must be unique.
func (r *Registry) Register(name string, work WorkFunc, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("%w: job name is required", ErrInvalidJobConfig)
	}
	if work == nil {
		return fmt.Errorf("%w: work is nil for %s", ErrInvalidJobConfig, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	r.specs[name] = JobSpec{Name: name, Work: work, Options: opts}
	r.order = append(r.order, name)
	return nil
}

// Get returns the job registered under name
func (r *Registry) Get(name string) (JobSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns registered job names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Specs returns every registered job in registration order
func (r *Registry) Specs() []JobSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]JobSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name])
	}
	return specs
}

// Select returns the named jobs in the order given, skipping repeats.
// No names selects every job.
func (r *Registry) Select(names ...string) ([]JobSpec, error) {
	if len(names) == 0 {
		return r.Specs(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(names))
	specs := make([]JobSpec, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		spec, ok := r.specs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
