package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/servicecontainer/internal/manifest"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
	"github.com/leefowlercu/servicecontainer/internal/services"
)

func newReconciler(t *testing.T) (*Reconciler, *servicecontainer.Container) {
	t.Helper()
	c := newContainer(t)
	sup := NewSupervisor(nil, WithSupervisorLogger(discardLogger))
	t.Cleanup(sup.CancelAll)
	return NewReconciler(c, services.DefaultRegistry(), sup, discardLogger), c
}

func noopEntry(name string, deps ...string) manifest.Entry {
	return manifest.Entry{Name: name, Kind: services.KindNoop, Dependencies: deps}
}

func TestReconciler_InstallsInDependencyOrder(t *testing.T) {
	r, c := newReconciler(t)

	m := &manifest.Manifest{Services: []manifest.Entry{
		noopEntry("api", "store"),
		noopEntry("store"),
	}}

	result, err := r.Apply(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Installed: 2}, result)

	waitStarted(t, c, "store", "api")
	assert.Len(t, r.Current(), 2)
}

func TestReconciler_RemovesUndeclared(t *testing.T) {
	r, c := newReconciler(t)
	ctx := context.Background()

	_, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{noopEntry("a"), noopEntry("b")}})
	require.NoError(t, err)
	waitStarted(t, c, "a", "b")

	result, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{noopEntry("a")}})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Removed: 1, Unchanged: 1}, result)
	assert.False(t, c.HasService(servicecontainer.NewServiceName("b")))
	assert.True(t, c.HasService(servicecontainer.NewServiceName("a")))
}

func TestReconciler_ReplacesChangedEntry(t *testing.T) {
	r, c := newReconciler(t)
	ctx := context.Background()

	_, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{noopEntry("store"), noopEntry("api", "store")}})
	require.NoError(t, err)
	waitStarted(t, c, "store", "api")

	before := instanceOf(c, "store")

	changed := noopEntry("store")
	changed.Options = map[string]any{"value": "v2"}
	result, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{changed, noopEntry("api", "store")}})
	require.NoError(t, err)
	// The dependent was removed together with its dependency and is
	// installed again.
	assert.Equal(t, ReconcileResult{Replaced: 1, Restored: 1}, result)

	waitStarted(t, c, "store", "api")
	assert.NotEqual(t, before, instanceOf(c, "store"))
}

func TestReconciler_ReplacingPendingDependencyRestoresDependent(t *testing.T) {
	r, c := newReconciler(t)
	ctx := context.Background()

	slow := func(wait string) manifest.Entry {
		return manifest.Entry{
			Name:          "store",
			Kind:          services.KindDelay,
			Interruptible: true,
			Options:       map[string]any{"start_delay": wait},
		}
	}
	api := servicecontainer.NewServiceName("api")

	_, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{slow("10s"), noopEntry("api", "store")}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		p, ok := phaseOf(c, api)
		return ok && p == servicecontainer.PhaseAwaitingDependencies
	}, defaultWait, pollInterval)

	result, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{slow("9s"), noopEntry("api", "store")}})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Replaced: 1, Restored: 1}, result)
	assert.True(t, c.HasService(api))

	result, err = r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{slow("10ms"), noopEntry("api", "store")}})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Replaced: 1, Restored: 1}, result)
	waitStarted(t, c, "store", "api")
}

func TestReconciler_RemovedDependencyTakesTransitiveDependents(t *testing.T) {
	r, c := newReconciler(t)
	ctx := context.Background()

	_, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{
		noopEntry("store"), noopEntry("cache", "store"), noopEntry("api", "cache"),
	}})
	require.NoError(t, err)
	waitStarted(t, c, "store", "cache", "api")

	changed := noopEntry("store")
	changed.Options = map[string]any{"value": "v2"}
	result, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{
		changed, noopEntry("cache", "store"), noopEntry("api", "cache"),
	}})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Replaced: 1, Restored: 2}, result)
	waitStarted(t, c, "store", "cache", "api")
}

func TestReconciler_RemovingFailedServiceIsNotAnError(t *testing.T) {
	r, c := newReconciler(t)
	ctx := context.Background()

	broken := manifest.Entry{Name: "broken", Kind: services.KindDelay, Options: map[string]any{"fail": true}}
	_, err := r.Apply(ctx, &manifest.Manifest{Services: []manifest.Entry{broken}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !c.HasService(servicecontainer.NewServiceName("broken"))
	}, defaultWait, pollInterval)

	result, err := r.Apply(ctx, &manifest.Manifest{})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Removed: 1}, result)
}

func TestReconciler_ReappliedManifestRetriesFailedService(t *testing.T) {
	r, c := newReconciler(t)
	ctx := context.Background()

	m := &manifest.Manifest{Services: []manifest.Entry{
		{Name: "broken", Kind: services.KindDelay, Options: map[string]any{"fail": true}},
	}}
	_, err := r.Apply(ctx, m)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !c.HasService(servicecontainer.NewServiceName("broken")) && !r.supervisor.Supervising(servicecontainer.NewServiceName("broken"))
	}, defaultWait, pollInterval)

	result, err := r.Apply(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Restored: 1}, result)
}

func instanceOf(c *servicecontainer.Container, name string) string {
	for _, s := range c.Services() {
		if s.Name == servicecontainer.NewServiceName(name) {
			return s.Instance
		}
	}
	return ""
}
