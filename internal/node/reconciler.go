package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leefowlercu/servicecontainer/internal/actor"
	"github.com/leefowlercu/servicecontainer/internal/manifest"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
	"github.com/leefowlercu/servicecontainer/internal/services"
)

// ReconcileResult summarizes one reconciliation.
type ReconcileResult struct {
	Installed int
	Removed   int
	Replaced  int
	// Restored counts unchanged entries installed again because they are no
	// longer in the container, for example dependents removed together with
	// a replaced dependency.
	Restored  int
	Unchanged int
}

// Reconciler converges the container towards a manifest: it installs new
// entries, removes entries that are no longer declared and replaces entries
// whose declaration changed.
type Reconciler struct {
	container  *servicecontainer.Container
	registry   *services.Registry
	supervisor *Supervisor
	logger     *slog.Logger

	mu      sync.Mutex
	current map[servicecontainer.ServiceName]manifest.Entry
}

// NewReconciler creates a reconciler for container.
func NewReconciler(c *servicecontainer.Container, reg *services.Registry, sup *Supervisor, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		container:  c,
		registry:   reg,
		supervisor: sup,
		logger:     logger,
		current:    make(map[servicecontainer.ServiceName]manifest.Entry),
	}
}

// Apply reconciles against m, which must already be valid. Removals finish
// before anything is installed so replaced services can reuse their names.
// The container removes dependents together with their dependency, so every
// transitive dependent of a removed or replaced entry is removed explicitly,
// waited for, and installed again. Restart supervision of installed entries
// lasts until ctx is done.
func (r *Reconciler) Apply(ctx context.Context, m *manifest.Manifest) (ReconcileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result ReconcileResult

	ordered, err := m.Order()
	if err != nil {
		return result, fmt.Errorf("failed to order manifest; %w", err)
	}

	desired := make(map[servicecontainer.ServiceName]manifest.Entry, len(ordered))
	for _, e := range ordered {
		desired[e.Identity()] = e
	}

	var remove []servicecontainer.ServiceName
	replaced := make(map[servicecontainer.ServiceName]bool)
	for name, cur := range r.current {
		next, ok := desired[name]
		switch {
		case !ok:
			remove = append(remove, name)
			result.Removed++
		case !cur.Equal(next):
			remove = append(remove, name)
			replaced[name] = true
			result.Replaced++
		}
	}

	cascaded := r.dependentsOf(remove)
	for name := range cascaded {
		remove = append(remove, name)
	}

	if err := r.removeAll(ctx, remove); err != nil {
		return result, err
	}

	for _, e := range ordered {
		name := e.Identity()
		cur, known := r.current[name]
		unchanged := known && cur.Equal(e)
		if unchanged && (r.container.HasService(name) || r.supervisor.Supervising(name)) {
			result.Unchanged++
			continue
		}
		if err := r.install(ctx, e); err != nil {
			return result, err
		}
		switch {
		case unchanged, cascaded[name]:
			result.Restored++
		case !replaced[name]:
			result.Installed++
		}
	}

	r.logger.Info("manifest reconciled",
		"installed", result.Installed,
		"removed", result.Removed,
		"replaced", result.Replaced,
		"restored", result.Restored,
		"unchanged", result.Unchanged,
	)

	return result, nil
}

// dependentsOf returns every applied entry that depends, directly or
// transitively, on one of names. Entries in names are not included.
func (r *Reconciler) dependentsOf(names []servicecontainer.ServiceName) map[servicecontainer.ServiceName]bool {
	dependents := make(map[servicecontainer.ServiceName][]servicecontainer.ServiceName)
	for name, e := range r.current {
		deps, err := e.DependencyNames()
		if err != nil {
			continue
		}
		for _, d := range deps {
			dependents[d] = append(dependents[d], name)
		}
	}

	roots := make(map[servicecontainer.ServiceName]bool, len(names))
	for _, name := range names {
		roots[name] = true
	}

	found := make(map[servicecontainer.ServiceName]bool)
	queue := append([]servicecontainer.ServiceName(nil), names...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, d := range dependents[name] {
			if roots[d] || found[d] {
				continue
			}
			found[d] = true
			queue = append(queue, d)
		}
	}
	return found
}

func (r *Reconciler) removeAll(ctx context.Context, names []servicecontainer.ServiceName) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		r.supervisor.Cancel(name)
		delete(r.current, name)

		f := r.container.RemoveService(name)
		g.Go(func() error {
			_, err := f.Wait(gctx)
			// A failed instance may already be gone.
			if err != nil && !errors.Is(err, servicecontainer.ErrNoSuchService) {
				return fmt.Errorf("failed to remove %s; %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Reconciler) install(ctx context.Context, e manifest.Entry) error {
	name := e.Identity()

	deps, err := e.DependencyNames()
	if err != nil {
		return err
	}
	group, hasGroup, err := e.GroupName()
	if err != nil {
		return err
	}
	refs, err := e.ReferenceNames()
	if err != nil {
		return err
	}

	logger := r.logger.With("service", name.String())
	install := func() *actor.Future[any] {
		members := &servicecontainer.ReferenceCollection[any]{}
		svc, err := r.registry.Build(services.Definition{
			Entry:        e,
			Dependencies: deps,
			Members:      members,
			Logger:       logger,
		})
		if err != nil {
			return actor.FailedFuture[any](err)
		}

		b := r.container.CreateService(name, svc)
		for _, d := range deps {
			b.Dependency(d)
		}
		if hasGroup {
			b.Group(group)
		}
		for _, ref := range refs {
			b.GroupReference(ref, members)
		}
		return b.Install()
	}

	r.current[name] = e
	r.supervisor.Supervise(ctx, name, e.RestartPolicy(), install)
	return nil
}

// Current returns the entries currently applied.
func (r *Reconciler) Current() []manifest.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]manifest.Entry, 0, len(r.current))
	for _, e := range r.current {
		entries = append(entries, e)
	}
	return entries
}
