package operation

import (
	"errors"
	"sort"
	"sync"
)

// Registry errors.
var (
	// ErrNilAdapter indicates a nil adapter was registered.
	ErrNilAdapter = errors.New("adapter is nil")

	// ErrEmptyService indicates an adapter with an empty service id.
	ErrEmptyService = errors.New("adapter service id is empty")

	// ErrAdapterExists indicates the service id is already registered.
	ErrAdapterExists = errors.New("adapter already registered")
)

// Registry holds the registered service adapters. Registration happens at
// startup; reads afterwards are concurrent.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter keyed by its service id.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return ErrNilAdapter
	}
	svc := a.Service()
	if svc == "" {
		return ErrEmptyService
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[svc]; exists {
		return ErrAdapterExists
	}
	r.adapters[svc] = a
	return nil
}

// Get retrieves an adapter by service id.
func (r *Registry) Get(service string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[service]
	return a, ok
}

// Services returns the registered service ids, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for svc := range r.adapters {
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}

// Walk visits every operation of every adapter in deterministic order
// (service id, then declaration order).
func (r *Registry) Walk(fn func(service string, op Operation)) {
	for _, svc := range r.Services() {
		a, _ := r.Get(svc)
		for _, op := range a.Operations() {
			fn(svc, op)
		}
	}
}
