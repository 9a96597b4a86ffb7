package upload

import (
	"sync"

	"github.com/strmforge/video-courier/internal/port"
)

// StrategyFactory builds a strategy instance for one backend
type StrategyFactory func() (port.Strategy, error)

// Registry maps backend names to strategy constructors
type Registry struct {
	mu        sync.RWMutex
	factories map[string]StrategyFactory
}

// NewRegistry creates an empty strategy registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]StrategyFactory)}
}

// Register adds a strategy factory under a backend name, replacing any
// previous registration for the same name.
func (r *Registry) Register(backend string, factory StrategyFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[backend] = factory
}

// Get returns the factory registered for a backend name
func (r *Registry) Get(backend string) (StrategyFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[backend]
	return factory, ok
}

// Backends returns the registered backend names
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
