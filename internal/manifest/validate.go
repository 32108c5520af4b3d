package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// KindChecker reports whether a service kind can be built.
type KindChecker func(kind string) bool

// ValidationError describes one problem with a manifest entry.
type ValidationError struct {
	Service string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Field, e.Message)
}

// ValidationErrors collects every problem found in a manifest.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("manifest validation failed: %s", strings.Join(msgs, "; "))
}

// Validate checks identities, kinds, references and the dependency graph.
// A nil checker accepts every non-empty kind.
func (m *Manifest) Validate(kinds KindChecker) error {
	var errs ValidationErrors
	add := func(service, field, format string, args ...any) {
		errs = append(errs, ValidationError{Service: service, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[servicecontainer.ServiceName]bool, len(m.Services))
	for i, e := range m.Services {
		label := e.Name
		if label == "" {
			label = fmt.Sprintf("services[%d]", i)
		}

		if e.Name == "" {
			add(label, "name", "is required")
			continue
		}
		if strings.Contains(e.Name, "/") {
			add(label, "name", "must not contain '/'")
		}

		id := e.Identity()
		if seen[id] {
			add(label, "name", "duplicate service %s", id)
		}
		seen[id] = true

		switch {
		case e.Kind == "":
			add(label, "kind", "is required")
		case kinds != nil && !kinds(e.Kind):
			add(label, "kind", "unknown kind %q", e.Kind)
		}

		switch e.RestartPolicy() {
		case RestartNever, RestartOnFailure:
		default:
			add(label, "restart", "must be one of never, on_failure")
		}

		deps, err := e.DependencyNames()
		if err != nil {
			add(label, "dependencies", "%v", err)
		}
		for _, d := range deps {
			if d == id {
				add(label, "dependencies", "service depends on itself")
			}
		}

		if _, _, err := e.GroupName(); err != nil {
			add(label, "group", "%v", err)
		}
		if _, err := e.ReferenceNames(); err != nil {
			add(label, "references", "%v", err)
		}
	}

	for _, e := range m.Services {
		deps, err := e.DependencyNames()
		if err != nil {
			continue
		}
		for _, d := range deps {
			if !seen[d] {
				add(e.Name, "dependencies", "undeclared dependency %s", d)
			}
		}
	}

	if len(errs) == 0 {
		if _, err := m.Order(); err != nil {
			add("", "services", "%v", err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Order returns the entries with every dependency listed before its
// dependents. Ties keep name order so output is stable.
func (m *Manifest) Order() ([]Entry, error) {
	byName := make(map[servicecontainer.ServiceName]Entry, len(m.Services))
	indegree := make(map[servicecontainer.ServiceName]int, len(m.Services))
	dependents := make(map[servicecontainer.ServiceName][]servicecontainer.ServiceName)

	for _, e := range m.Services {
		id := e.Identity()
		byName[id] = e
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
	}
	for _, e := range m.Services {
		deps, err := e.DependencyNames()
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			if _, ok := byName[d]; !ok {
				continue
			}
			indegree[e.Identity()]++
			dependents[d] = append(dependents[d], e.Identity())
		}
	}

	var ready []servicecontainer.ServiceName
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	ordered := make([]Entry, 0, len(m.Services))
	for len(ready) > 0 {
		sortNames(ready)
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[id])
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) != len(byName) {
		var cyclic []string
		for id, n := range indegree {
			if n > 0 {
				cyclic = append(cyclic, id.String())
			}
		}
		sort.Strings(cyclic)
		return nil, fmt.Errorf("dependency cycle between %s", strings.Join(cyclic, ", "))
	}

	return ordered, nil
}

func sortNames(names []servicecontainer.ServiceName) {
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
}
