package providers

import (
	"fmt"
	"sync"
)

// Registry holds one configured completer per agent role so each role can
// run with its own model and temperature.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Completer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Completer)}
}

// Register binds a completer to a role name, replacing any previous binding.
func (r *Registry) Register(role string, c Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[role] = c
}

// Get returns the completer bound to a role name.
func (r *Registry) Get(role string) (Completer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.entries[role]
	if !ok {
		return nil, fmt.Errorf("providers: no completer registered for role %q", role)
	}
	return c, nil
}

// Roles lists the role names with a registered completer.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.entries))
	for role := range r.entries {
		roles = append(roles, role)
	}
	return roles
}
