package node

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/servicecontainer/internal/actor"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	defaultWait  = 5 * time.Second
	pollInterval = 5 * time.Millisecond
)

func newContainer(t *testing.T) *servicecontainer.Container {
	t.Helper()
	c := servicecontainer.New(servicecontainer.WithLogger(discardLogger))
	require.NoError(t, c.Start())
	t.Cleanup(func() {
		assert.NoError(t, c.Close(10*time.Second))
	})
	return c
}

func writeManifest(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func tempManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	writeManifest(t, path, content)
	return path
}

func phaseOf(c *servicecontainer.Container, name servicecontainer.ServiceName) (servicecontainer.Phase, bool) {
	for _, s := range c.Services() {
		if s.Name == name {
			return s.Phase, true
		}
	}
	return 0, false
}

func waitStarted(t *testing.T, c *servicecontainer.Container, names ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, n := range names {
			if p, ok := phaseOf(c, servicecontainer.NewServiceName(n)); !ok || p != servicecontainer.PhaseStarted {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond, "services %v did not start", names)
}

func waitFuture[T any](t *testing.T, f *actor.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "future did not resolve")
	return v, err
}
