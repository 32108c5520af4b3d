package servicecontainer

import (
	"fmt"
	"sort"
	"sync"
)

// Service is the capability every managed component implements.
//
// Start and Stop may finish synchronously by returning, or register at most
// one asynchronous completion on their context through Async or Run. An error
// returned from Start is a start failure; an error from Stop is logged and the
// service is considered stopped. Get returns the value handed to dependents
// and group references once the service has started.
type Service interface {
	Start(ctx *StartContext) error
	Stop(ctx *StopContext) error
	Get() any
}

// Completion is an asynchronous result registered by a service. Futures from
// the actor package satisfy it.
type Completion interface {
	Done() <-chan struct{}
	Err() error
}

// Injector receives a dependency's value before its owner starts and is
// released after its owner stops.
type Injector interface {
	Inject(value any) error
	Uninject()
}

// GroupReference observes membership of a group. AddValue is called once for
// every member present when the reference is registered and for every member
// that joins later; RemoveValue once for every member that leaves. Uninject
// is called once when the owning service stops.
type GroupReference interface {
	AddValue(name ServiceName, value any)
	RemoveValue(name ServiceName, value any)
	Uninject()
}

// Injected is an Injector holding a dependency value of type T.
type Injected[T any] struct {
	mu       sync.RWMutex
	value    T
	injected bool
}

// Inject stores value, which must be of type T.
func (i *Injected[T]) Inject(value any) error {
	v, ok := value.(T)
	if !ok {
		var want T
		return fmt.Errorf("expected %T, got %T; %w", want, value, ErrInjectionType)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = v
	i.injected = true
	return nil
}

// Uninject clears the stored value.
func (i *Injected[T]) Uninject() {
	i.mu.Lock()
	defer i.mu.Unlock()
	var zero T
	i.value = zero
	i.injected = false
}

// Value returns the injected value, or the zero value when not injected.
func (i *Injected[T]) Value() T {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.value
}

// IsInjected reports whether a value is currently injected.
func (i *Injected[T]) IsInjected() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.injected
}

// ReferenceCollection is a GroupReference keeping the current members of a
// group whose values are of type T. Members with a value of another type are
// ignored.
type ReferenceCollection[T any] struct {
	mu      sync.RWMutex
	members map[ServiceName]T
}

// AddValue records a member.
func (r *ReferenceCollection[T]) AddValue(name ServiceName, value any) {
	v, ok := value.(T)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members == nil {
		r.members = make(map[ServiceName]T)
	}
	r.members[name] = v
}

// RemoveValue forgets a member.
func (r *ReferenceCollection[T]) RemoveValue(name ServiceName, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, name)
}

// Uninject forgets all members.
func (r *ReferenceCollection[T]) Uninject() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = nil
}

// Len returns the number of members.
func (r *ReferenceCollection[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Get returns the value of one member.
func (r *ReferenceCollection[T]) Get(name ServiceName) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.members[name]
	return v, ok
}

// Names returns the member names in sorted order.
func (r *ReferenceCollection[T]) Names() []ServiceName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]ServiceName, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
	return names
}
