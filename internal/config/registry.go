package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/diktat/internal/attempt"
)

// ErrBackendNotRegistered is returned by [Registry.CreateAttemptStore] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// AttemptStoreFactory builds an attempt store from its configuration block.
type AttemptStoreFactory func(ctx context.Context, cfg AttemptsConfig) (attempt.Store, error)

// Registry maps attempt store backend names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	attempts map[string]AttemptStoreFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		attempts: make(map[string]AttemptStoreFactory),
	}
}

// RegisterAttemptStore registers an attempt store factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAttemptStore(name string, factory AttemptStoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[name] = factory
}

// CreateAttemptStore instantiates the store registered under cfg.Backend.
// Returns [ErrBackendNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateAttemptStore(ctx context.Context, cfg AttemptsConfig) (attempt.Store, error) {
	r.mu.RLock()
	factory, ok := r.attempts[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: attempts/%q", ErrBackendNotRegistered, cfg.Backend)
	}
	return factory(ctx, cfg)
}

// AttemptStores returns the registered backend names in sorted order.
func (r *Registry) AttemptStores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.attempts))
	for name := range r.attempts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
