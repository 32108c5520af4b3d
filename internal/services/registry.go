// Package services provides the service kinds a node can declare in its
// manifest and a registry mapping kind names to factories.
package services

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leefowlercu/servicecontainer/internal/manifest"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// ErrUnknownKind is returned when no factory is registered for a kind.
var ErrUnknownKind = errors.New("unknown service kind")

// Definition is everything a factory needs to build one service.
type Definition struct {
	Entry manifest.Entry

	// Dependencies are the parsed dependency names of Entry.
	Dependencies []servicecontainer.ServiceName

	// Members observes the groups listed in Entry.References.
	Members *servicecontainer.ReferenceCollection[any]

	Logger *slog.Logger
}

// Factory builds a service from its definition.
type Factory func(def Definition) (servicecontainer.Service, error)

// Registry maps kind names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(KindNoop, newNoop)
	r.MustRegister(KindDelay, newDelay)
	r.MustRegister(KindHTTP, newHTTP)
	r.MustRegister(KindRedis, newRedis)
	return r
}

// Register adds a factory for kind.
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" || f == nil {
		return fmt.Errorf("kind and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("kind %q already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(kind string, f Factory) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates the service declared by def.
func (r *Registry) Build(def Definition) (servicecontainer.Service, error) {
	r.mu.RLock()
	f, ok := r.factories[def.Entry.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %q; %w", def.Entry.Identity(), def.Entry.Kind, ErrUnknownKind)
	}
	if def.Logger == nil {
		def.Logger = slog.Default()
	}
	if def.Members == nil {
		def.Members = &servicecontainer.ReferenceCollection[any]{}
	}

	svc, err := f(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s; %w", def.Entry.Identity(), err)
	}
	return svc, nil
}
