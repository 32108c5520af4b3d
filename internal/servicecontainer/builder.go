package servicecontainer

import (
	"fmt"

	"github.com/leefowlercu/servicecontainer/internal/actor"
)

type groupRef struct {
	group ServiceName
	ref   GroupReference
}

// Builder collects an installation request. Nothing happens until Install.
type Builder struct {
	container    *Container
	name         ServiceName
	service      Service
	dependencies []ServiceName
	injectors    map[ServiceName][]Injector
	group        ServiceName
	references   []groupRef
	err          error

	// accepted runs under the container lock once the install is admitted.
	accepted func()
}

func newBuilder(c *Container, name ServiceName, service Service) *Builder {
	b := &Builder{
		container: c,
		name:      name,
		service:   service,
		injectors: make(map[ServiceName][]Injector),
	}
	switch {
	case name.Name == "":
		b.fail("service name must not be empty")
	case service == nil:
		b.fail("service must not be nil")
	}
	return b
}

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%s: %s; %w", b.name, fmt.Sprintf(format, args...), ErrInvalidService)
	}
}

// Dependency declares that the service may only start once name has started.
// Declaring the same dependency twice has no additional effect.
func (b *Builder) Dependency(name ServiceName) *Builder {
	if name == b.name {
		b.fail("service cannot depend on itself")
		return b
	}
	for _, existing := range b.dependencies {
		if existing == name {
			return b
		}
	}
	b.dependencies = append(b.dependencies, name)
	return b
}

// DependencyInjector declares a dependency and injects its value into inj
// before the service starts.
func (b *Builder) DependencyInjector(name ServiceName, inj Injector) *Builder {
	if inj == nil {
		b.fail("nil injector for dependency %s", name)
		return b
	}
	b.Dependency(name)
	b.injectors[name] = append(b.injectors[name], inj)
	return b
}

// Group makes the service a member of group while it is started.
func (b *Builder) Group(group ServiceName) *Builder {
	b.group = group
	return b
}

// GroupReference registers ref to observe the members of group while the
// service is started.
func (b *Builder) GroupReference(group ServiceName, ref GroupReference) *Builder {
	if ref == nil {
		b.fail("nil reference for group %s", group)
		return b
	}
	b.references = append(b.references, groupRef{group: group, ref: ref})
	return b
}

// Install hands the request to the container. The returned future resolves
// with the service's value once it has started, or fails if the installation
// is rejected, the start fails, or the service is removed before starting.
func (b *Builder) Install() *actor.Future[any] {
	if b.err != nil {
		return actor.FailedFuture[any](b.err)
	}
	return b.container.install(b)
}
