package servicecontainer

import "log/slog"

type controllerSet map[*controller]struct{}

func (s controllerSet) has(c *controller) bool {
	_, ok := s[c]
	return ok
}

func (s controllerSet) add(c *controller) {
	s[c] = struct{}{}
}

// resolver tracks the dependency graph and decides when controllers may start
// and stop. It is driven exclusively by the container's event loop and is not
// safe for concurrent use. Each event only touches the controllers directly
// adjacent to its source.
type resolver struct {
	logger *slog.Logger

	installed map[ServiceName]*controller
	// resolved lists, per controller, the installed controllers among its
	// declared dependencies.
	resolved   map[*controller][]*controller
	dependents map[*controller][]*controller
	// unresolved lists, per missing name, the controllers waiting for it.
	unresolved map[ServiceName][]*controller

	started    controllerSet
	starting   controllerSet
	stopping   controllerSet
	dispatched controllerSet
	released   controllerSet
	values     map[*controller]any

	groups   map[ServiceName]*group
	bindings map[*controller][]*referenceBinding
}

func newResolver(logger *slog.Logger) *resolver {
	return &resolver{
		logger:     logger,
		installed:  make(map[ServiceName]*controller),
		resolved:   make(map[*controller][]*controller),
		dependents: make(map[*controller][]*controller),
		unresolved: make(map[ServiceName][]*controller),
		started:    make(controllerSet),
		starting:   make(controllerSet),
		stopping:   make(controllerSet),
		dispatched: make(controllerSet),
		released:   make(controllerSet),
		values:     make(map[*controller]any),
		groups:     make(map[ServiceName]*group),
		bindings:   make(map[*controller][]*referenceBinding),
	}
}

func (r *resolver) onEvent(ev Event) {
	c := ev.controller
	switch ev.Type {
	case EventInstalled:
		r.onInstalled(c)
	case EventStarted:
		r.onStarted(c, ev.Payload)
	case EventStartFailed:
		delete(r.starting, c)
	case EventStopping:
		r.onStopping(c)
	case EventStopped:
		r.onStopped(c)
	case EventRemoved:
		r.onRemoved(c)
	}
}

func (r *resolver) onInstalled(c *controller) {
	r.installed[c.name] = c
	r.resolved[c] = make([]*controller, 0, len(c.dependencies))

	for _, dep := range c.dependencies {
		if d, ok := r.installed[dep]; ok {
			r.link(c, d)
		} else {
			r.unresolved[dep] = append(r.unresolved[dep], c)
		}
	}

	if waiting, ok := r.unresolved[c.name]; ok {
		delete(r.unresolved, c.name)
		for _, w := range waiting {
			r.link(w, c)
		}
	}

	r.checkDependenciesAvailable(c)
}

func (r *resolver) link(dependent, dependency *controller) {
	r.resolved[dependent] = append(r.resolved[dependent], dependency)
	r.dependents[dependency] = append(r.dependents[dependency], dependent)
}

// checkDependenciesAvailable dispatches dependencies_available to c once every
// declared dependency is installed, started and not stopping.
func (r *resolver) checkDependenciesAvailable(c *controller) {
	if r.dispatched.has(c) {
		return
	}
	deps := r.resolved[c]
	if len(deps) != len(c.dependencies) {
		return
	}

	values := make(map[ServiceName]any, len(deps))
	for _, d := range deps {
		if !r.started.has(d) || r.stopping.has(d) {
			return
		}
		values[d.name] = r.values[d]
	}

	r.dispatched.add(c)
	r.starting.add(c)
	c.post(message{kind: msgDependenciesAvailable, values: values})
}

func (r *resolver) onStarted(c *controller, value any) {
	delete(r.starting, c)
	r.started.add(c)
	r.values[c] = value

	for _, d := range r.dependents[c] {
		r.checkDependenciesAvailable(d)
	}

	if !c.group.IsZero() {
		g := r.group(c.group)
		g.addMember(c)
		for _, b := range g.references {
			b.notify(c.name, value, true)
		}
	}

	for _, ref := range c.references {
		b := &referenceBinding{owner: c, group: ref.group, ref: ref.ref}
		g := r.group(ref.group)
		g.addReference(b)
		r.bindings[c] = append(r.bindings[c], b)
		for _, m := range g.members {
			b.notify(m.name, r.values[m], true)
		}
	}
}

func (r *resolver) onStopping(c *controller) {
	r.stopping.add(c)
	r.leaveGroups(c)

	for _, d := range r.dependents[c] {
		d.post(message{kind: msgDependenciesUnavailable})
	}
	r.checkDependentsStopped(c)
}

func (r *resolver) onStopped(c *controller) {
	delete(r.started, c)
	delete(r.starting, c)
	delete(r.stopping, c)

	for _, d := range r.resolved[c] {
		r.checkDependentsStopped(d)
	}
}

func (r *resolver) onRemoved(c *controller) {
	if r.installed[c.name] == c {
		delete(r.installed, c.name)
	}
	r.leaveGroups(c)
	delete(r.started, c)
	delete(r.starting, c)
	delete(r.stopping, c)
	delete(r.dispatched, c)
	delete(r.released, c)
	delete(r.values, c)

	for _, d := range r.resolved[c] {
		r.dependents[d] = without(r.dependents[d], c)
		r.checkDependentsStopped(d)
	}
	delete(r.resolved, c)

	// Dependents still installed wait for a service of the same name to be
	// installed again.
	for _, w := range r.dependents[c] {
		r.resolved[w] = without(r.resolved[w], c)
		r.unresolved[c.name] = append(r.unresolved[c.name], w)
	}
	delete(r.dependents, c)

	for _, dep := range c.dependencies {
		if waiting, ok := r.unresolved[dep]; ok {
			waiting = without(waiting, c)
			if len(waiting) == 0 {
				delete(r.unresolved, dep)
			} else {
				r.unresolved[dep] = waiting
			}
		}
	}
}

// checkDependentsStopped releases a stopping controller once none of its
// dependents is started or starting.
func (r *resolver) checkDependentsStopped(c *controller) {
	if !r.stopping.has(c) || r.released.has(c) {
		return
	}
	for _, d := range r.dependents[c] {
		if r.started.has(d) || r.starting.has(d) {
			return
		}
	}
	r.released.add(c)
	c.post(message{kind: msgDependentsStopped})
}

// leaveGroups removes c from its group and drops its reference bindings.
func (r *resolver) leaveGroups(c *controller) {
	if !c.group.IsZero() {
		if g, ok := r.groups[c.group]; ok && g.removeMember(c) {
			value := r.values[c]
			for _, b := range g.references {
				b.notify(c.name, value, false)
			}
		}
	}

	for _, b := range r.bindings[c] {
		if g, ok := r.groups[b.group]; ok {
			g.removeReference(b)
		}
	}
	delete(r.bindings, c)
}

func (r *resolver) group(name ServiceName) *group {
	g, ok := r.groups[name]
	if !ok {
		g = &group{name: name}
		r.groups[name] = g
		r.logger.Debug("service group created", "group", name.String())
	}
	return g
}

func without(list []*controller, c *controller) []*controller {
	out := list[:0]
	for _, x := range list {
		if x != c {
			out = append(out, x)
		}
	}
	return out
}
