// Package node runs a service container from a manifest: it reconciles the
// declared services, restarts failed ones, tracks their health, serves an
// admin HTTP endpoint and reloads the manifest when it changes.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/leefowlercu/servicecontainer/internal/config"
	"github.com/leefowlercu/servicecontainer/internal/events"
	"github.com/leefowlercu/servicecontainer/internal/logging"
	"github.com/leefowlercu/servicecontainer/internal/manifest"
	"github.com/leefowlercu/servicecontainer/internal/metrics"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
	"github.com/leefowlercu/servicecontainer/internal/services"
)

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Node owns a container and everything driving it.
type Node struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	logManager *logging.Manager
	notify     Notifier

	container  *servicecontainer.Container
	bus        *events.EventBus
	health     *HealthManager
	recorder   *metrics.Recorder
	collector  *metrics.Collector
	registry   *services.Registry
	supervisor *Supervisor
	reconciler *Reconciler
	server     *Server

	mu           sync.Mutex
	manifestPath string
	listening    chan struct{}
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the node logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		n.logger = l
	}
}

// WithLogManager lets configuration reloads change the log level.
func WithLogManager(m *logging.Manager) Option {
	return func(n *Node) {
		n.logManager = m
	}
}

// WithRegistry replaces the built-in service kinds.
func WithRegistry(r *services.Registry) Option {
	return func(n *Node) {
		n.registry = r
	}
}

// WithNotifier overrides the service manager notifier.
func WithNotifier(fn Notifier) Option {
	return func(n *Node) {
		n.notify = fn
	}
}

// WithConfigPath sets the file re-read on SIGHUP; the default search path is
// used otherwise.
func WithConfigPath(path string) Option {
	return func(n *Node) {
		n.configPath = path
	}
}

// New creates a node from cfg. Nothing runs until Run.
func New(cfg *config.Config, opts ...Option) *Node {
	n := &Node{
		cfg:          cfg,
		logger:       slog.Default(),
		manifestPath: cfg.Node.ManifestPath,
		listening:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.notify == nil {
		n.notify = noopNotifier
		if cfg.Daemon.SystemdNotify {
			n.notify = SystemdNotifier
		}
	}
	if n.registry == nil {
		n.registry = services.DefaultRegistry()
	}

	n.bus = events.NewBus(events.WithLogger(n.logger))
	n.health = NewHealthManager()
	n.bus.SubscribeAll(n.health.Handle)
	n.recorder = metrics.NewRecorder()

	n.container = servicecontainer.New(
		servicecontainer.WithLogger(n.logger),
		servicecontainer.WithSchedulerWorkers(cfg.Container.SchedulerWorkers),
		servicecontainer.WithEventListener(n.onLifecycle),
	)

	n.supervisor = NewSupervisor(n.bus,
		WithSupervisorLogger(n.logger),
		WithBackoff(
			time.Duration(cfg.Node.Restart.MinBackoffMs)*time.Millisecond,
			time.Duration(cfg.Node.Restart.MaxBackoffMs)*time.Millisecond,
		),
	)
	n.reconciler = NewReconciler(n.container, n.registry, n.supervisor, n.logger)

	n.collector = metrics.NewCollector(collectInterval)
	n.collector.Register("container", metrics.ProviderFunc(n.collectPhases))

	serverOpts := []ServerOption{WithStatusFunc(n.container.Services)}
	if cfg.Daemon.MetricsEnabled {
		serverOpts = append(serverOpts, WithMetricsHandler(metrics.Handler()))
	}
	n.server = NewServer(n.health, ServerConfig{
		Bind: cfg.Daemon.HTTPBind,
		Port: cfg.Daemon.HTTPPort,
	}, serverOpts...)

	return n
}

// onLifecycle runs on the container loop for every processed event.
func (n *Node) onLifecycle(ev servicecontainer.Event) {
	n.recorder.Observe(ev)
	if e, ok := events.FromLifecycle(ev); ok {
		n.bus.Publish(context.Background(), e)
	}
}

func (n *Node) collectPhases(context.Context) error {
	counts := make(map[servicecontainer.Phase]int)
	for _, s := range n.container.Services() {
		counts[s.Phase]++
	}
	for _, phase := range servicecontainer.Phases() {
		metrics.ServicesByPhase.WithLabelValues(phase.String()).Set(float64(counts[phase]))
	}
	return nil
}

// Container returns the node's container.
func (n *Node) Container() *servicecontainer.Container {
	return n.container
}

// Health returns the node's health manager.
func (n *Node) Health() *HealthManager {
	return n.health
}

// Bus returns the node's event bus.
func (n *Node) Bus() events.Bus {
	return n.bus
}

// Addr blocks until the admin server is listening or ctx is done and
// returns its address.
func (n *Node) Addr(ctx context.Context) (string, error) {
	select {
	case <-n.listening:
		return n.server.Addr(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run starts the node and blocks until ctx is done, then shuts down. It
// returns an error when startup fails or the container does not close in
// time.
func (n *Node) Run(ctx context.Context) error {
	if err := n.container.Start(); err != nil {
		return fmt.Errorf("failed to start container; %w", err)
	}
	n.health.SetOpen(true)
	n.collector.Start(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := n.server.Listen(runCtx); err != nil {
		n.shutdown()
		return err
	}
	close(n.listening)

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		serverErr <- n.server.Serve()
	}()

	if err := n.LoadManifest(runCtx); err != nil {
		cancel()
		n.shutdown()
		wg.Wait()
		return err
	}

	if err := n.notify(daemon.SdNotifyReady); err != nil {
		n.logger.Warn("failed to notify service manager", "error", err)
	}
	n.logger.Info("node started", "addr", n.server.Addr(), "manifest", n.ManifestPath())

	if n.cfg.Node.WatchManifest {
		w := NewManifestWatcher(n.ManifestPath(), n.reloadManifest,
			WithReloadInterval(time.Duration(n.cfg.Node.ReloadIntervalMs)*time.Millisecond),
			WithWatcherLogger(n.logger),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(runCtx); err != nil {
				n.logger.Error("manifest watcher stopped", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		config.NotifyReload(runCtx, n.configPath, func(cfg *config.Config, err error) {
			n.onConfigReload(runCtx, cfg, err)
		})
	}()

	select {
	case <-ctx.Done():
		n.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			n.logger.Error("admin server failed", "error", err)
		}
	}

	cancel()
	err := n.shutdown()
	wg.Wait()
	return err
}

// LoadManifest loads, validates and applies the configured manifest.
func (n *Node) LoadManifest(ctx context.Context) error {
	path := n.ManifestPath()

	m, err := manifest.LoadAndValidate(path, n.registry.Has)
	if err != nil {
		n.publish(events.ManifestRejected, events.ManifestEvent{Path: path, Error: err.Error()})
		metrics.RecordReconcile(err)
		return fmt.Errorf("failed to load manifest; %w", err)
	}

	return n.Apply(ctx, path, m)
}

// Apply reconciles the container against m.
func (n *Node) Apply(ctx context.Context, path string, m *manifest.Manifest) error {
	names := make([]servicecontainer.ServiceName, 0, len(m.Services))
	for _, e := range m.Services {
		names = append(names, e.Identity())
	}
	n.health.SetExpected(names)

	result, err := n.reconciler.Apply(ctx, m)
	metrics.RecordReconcile(err)
	if err != nil {
		n.publish(events.ManifestRejected, events.ManifestEvent{Path: path, Error: err.Error()})
		return fmt.Errorf("failed to apply manifest; %w", err)
	}

	n.publish(events.ManifestApplied, events.ManifestEvent{
		Path:      path,
		Services:  len(m.Services),
		Installed: result.Installed,
		Removed:   result.Removed,
		Replaced:  result.Replaced,
	})
	return nil
}

// reloadManifest keeps the running services when the new manifest is invalid.
func (n *Node) reloadManifest(ctx context.Context) {
	if err := n.LoadManifest(ctx); err != nil {
		n.logger.Warn("manifest reload rejected; keeping previous services", "error", err)
	}
}

func (n *Node) onConfigReload(ctx context.Context, cfg *config.Config, err error) {
	if err != nil {
		n.logger.Warn("config reload failed; keeping previous config", "error", err)
		n.publish(events.ConfigReloadFailed, events.ConfigReloadEvent{Path: n.configPath, Error: err.Error()})
		return
	}

	if n.logManager != nil {
		n.logManager.SetLevel(logging.ParseLevelOrDefault(cfg.LogLevel))
	}

	n.mu.Lock()
	n.manifestPath = cfg.Node.ManifestPath
	n.mu.Unlock()

	n.publish(events.ConfigReloaded, events.ConfigReloadEvent{Path: n.configPath})
	n.reloadManifest(ctx)
}

// ManifestPath returns the manifest currently in use.
func (n *Node) ManifestPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.manifestPath
}

func (n *Node) publish(typ events.EventType, payload any) {
	if err := n.bus.Publish(context.Background(), events.NewEvent(typ, payload)); err != nil {
		n.logger.Debug("event not published", "type", typ, "error", err)
	}
}

// shutdown stops supervision, closes the container and the admin server.
func (n *Node) shutdown() error {
	if err := n.notify(daemon.SdNotifyStopping); err != nil {
		n.logger.Warn("failed to notify service manager", "error", err)
	}

	n.supervisor.CancelAll()
	n.health.SetOpen(false)

	begin := time.Now()
	closeErr := n.container.Close(time.Duration(n.cfg.Container.CloseTimeout) * time.Second)
	metrics.RecordClose(time.Since(begin))
	if closeErr != nil {
		n.logger.Error("container did not close cleanly", "error", closeErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.server.Shutdown(shutdownCtx); err != nil {
		n.logger.Error("failed to shutdown admin server", "error", err)
	}

	n.collector.Stop()
	if err := n.bus.Close(); err != nil {
		n.logger.Debug("event bus close", "error", err)
	}

	n.logger.Info("node stopped")
	return closeErr
}
