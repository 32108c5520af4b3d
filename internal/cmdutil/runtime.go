package cmdutil

import (
	"sync"

	"github.com/leefowlercu/servicecontainer/internal/config"
	"github.com/leefowlercu/servicecontainer/internal/logging"
)

// Runtime is the state prepared by the root command before a subcommand runs.
type Runtime struct {
	Config     *config.Config
	ConfigPath string
	Logs       *logging.Manager
}

var (
	mu      sync.RWMutex
	current Runtime
)

// SetRuntime records the prepared runtime.
func SetRuntime(rt Runtime) {
	mu.Lock()
	defer mu.Unlock()
	current = rt
}

// CurrentRuntime returns the prepared runtime. Config falls back to the
// defaults when the root command has not loaded one.
func CurrentRuntime() Runtime {
	mu.RLock()
	rt := current
	mu.RUnlock()

	if rt.Config == nil {
		cfg := config.NewDefaultConfig()
		rt.Config = &cfg
	}
	if rt.Logs == nil {
		rt.Logs = logging.NewManager()
	}
	return rt
}
