package runner

import (
	"sort"
	"sync"
)

// Registry maps language tags to runners.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Register adds or replaces the runner for tag.
func (r *Registry) Register(tag string, rn Runner) {
	r.mu.Lock()
	r.runners[tag] = rn
	r.mu.Unlock()
}

// Get returns the runner registered for tag.
func (r *Registry) Get(tag string) (Runner, bool) {
	r.mu.RLock()
	rn, ok := r.runners[tag]
	r.mu.RUnlock()
	return rn, ok
}

// Languages returns the registered tags in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.runners))
	for tag := range r.runners {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
