package servicecontainer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leefowlercu/servicecontainer/internal/actor"
)

// ContainerState is the lifecycle state of a Container.
type ContainerState int32

// Container states. A container only moves forward through them.
const (
	StateNew ContainerState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ContainerState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServiceStatus is a point-in-time view of one installed service.
type ServiceStatus struct {
	Name         ServiceName   `json:"name"`
	Instance     string        `json:"instance"`
	Phase        Phase         `json:"phase"`
	Dependencies []ServiceName `json:"dependencies,omitempty"`
	Group        *ServiceName  `json:"group,omitempty"`
}

// Container installs, supervises and removes services. Create one with New,
// call Start, and Close it when done; a closed container cannot be reused.
type Container struct {
	mu       sync.Mutex
	state    ContainerState
	services map[ServiceName]*controller

	events    *actor.Mailbox[Event]
	resolver  *resolver
	scheduler *actor.Scheduler
	listeners []EventListener
	logger    *slog.Logger
	workers   int

	loopStarted  bool
	loopDone     chan struct{}
	closed       *actor.Future[struct{}]
	finalizeOnce sync.Once
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the container logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) {
		c.logger = l
	}
}

// WithEventListener registers a listener for every processed lifecycle event.
func WithEventListener(l EventListener) Option {
	return func(c *Container) {
		c.listeners = append(c.listeners, l)
	}
}

// WithSchedulerWorkers sets the size of the worker pool handed to services.
func WithSchedulerWorkers(n int) Option {
	return func(c *Container) {
		c.workers = n
	}
}

// New creates a container in StateNew.
func New(opts ...Option) *Container {
	c := &Container{
		services: make(map[ServiceName]*controller),
		events:   actor.NewMailbox[Event](),
		logger:   slog.Default(),
		loopDone: make(chan struct{}),
		closed:   actor.NewFuture[struct{}](),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.resolver = newResolver(c.logger)
	c.scheduler = actor.NewScheduler(
		actor.WithWorkers(c.workers),
		actor.WithSchedulerLogger(c.logger),
	)

	return c
}

// Start opens the container and runs its event loop.
func (c *Container) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return fmt.Errorf("failed to start container in state %s; %w", c.state, ErrContainerAlreadyStarted)
	}
	c.state = StateOpen
	c.loopStarted = true
	go c.loop()

	c.logger.Info("service container started", "workers", c.scheduler.Workers())
	return nil
}

// State returns the current container state.
func (c *Container) State() ContainerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Scheduler returns the worker pool shared by all services.
func (c *Container) Scheduler() *actor.Scheduler {
	return c.scheduler
}

// CreateService starts an installation request for service under name.
func (c *Container) CreateService(name ServiceName, service Service) *Builder {
	return newBuilder(c, name, service)
}

func (c *Container) install(b *Builder) *actor.Future[any] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return actor.FailedFuture[any](
			fmt.Errorf("failed to install service %s in state %s; %w", b.name, c.state, ErrContainerNotOpen))
	}
	if _, exists := c.services[b.name]; exists {
		return actor.FailedFuture[any](
			fmt.Errorf("failed to install service %s; %w", b.name, ErrServiceAlreadyExists))
	}

	ctrl := newController(c, b)
	c.services[b.name] = ctrl
	if b.accepted != nil {
		b.accepted()
	}
	c.events.Submit(ctrl.event(EventInstalled, nil))
	go ctrl.run()

	ctrl.logger.Debug("service installed",
		"dependencies", len(b.dependencies),
		"group", b.group.String(),
		"references", len(b.references),
	)
	return ctrl.ready
}

// RemoveService stops and removes a service together with everything that
// depends on it. The returned future resolves once the service is removed.
func (c *Container) RemoveService(name ServiceName) *actor.Future[struct{}] {
	c.mu.Lock()
	ctrl, ok := c.services[name]
	state := c.state
	c.mu.Unlock()

	if !ok {
		if state != StateOpen {
			return actor.FailedFuture[struct{}](
				fmt.Errorf("failed to remove service %s in state %s; %w", name, state, ErrContainerNotOpen))
		}
		return actor.FailedFuture[struct{}](
			fmt.Errorf("failed to remove service %s; %w", name, ErrNoSuchService))
	}
	return ctrl.remove()
}

// HasService reports whether a service is installed under name.
func (c *Container) HasService(name ServiceName) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.services[name]
	return ok
}

// Services returns the status of every installed service sorted by name.
func (c *Container) Services() []ServiceStatus {
	c.mu.Lock()
	ctrls := make([]*controller, 0, len(c.services))
	for _, ctrl := range c.services {
		ctrls = append(ctrls, ctrl)
	}
	c.mu.Unlock()

	statuses := make([]ServiceStatus, 0, len(ctrls))
	for _, ctrl := range ctrls {
		phase := ctrl.currentPhase()
		st := ServiceStatus{
			Name:         ctrl.name,
			Instance:     ctrl.instance,
			Phase:        phase,
			Dependencies: append([]ServiceName(nil), ctrl.dependencies...),
		}
		if !ctrl.group.IsZero() {
			g := ctrl.group
			st.Group = &g
		}
		statuses = append(statuses, st)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name.String() < statuses[j].Name.String()
	})
	return statuses
}

func (c *Container) loop() {
	defer close(c.loopDone)

	for {
		ev, ok := c.events.Receive()
		if !ok {
			return
		}
		c.process(ev)
	}
}

func (c *Container) process(ev Event) {
	c.logger.Debug("lifecycle event",
		"event", ev.Type.String(),
		"service", ev.Service.String(),
		"instance", ev.Instance,
	)

	c.resolver.onEvent(ev)

	if ev.Type == EventRemoved {
		c.mu.Lock()
		if c.services[ev.Service] == ev.controller {
			delete(c.services, ev.Service)
		}
		c.mu.Unlock()
	}

	for _, l := range c.listeners {
		c.notify(l, ev)
	}

	if ev.Type == EventRemoved {
		ev.controller.removal.Complete(struct{}{})
	}
}

func (c *Container) notify(l EventListener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event listener panicked", "event", ev.Type.String(), "panic", r)
		}
	}()
	l(ev)
}

// CloseAsync asks every installed service to stop and returns a future that
// resolves once all of them are removed and the event loop has exited.
// Dependents are always removed before the services they depend on.
func (c *Container) CloseAsync() *actor.Future[struct{}] {
	c.mu.Lock()
	switch c.state {
	case StateNew:
		c.state = StateClosed
		c.mu.Unlock()
		c.finalize()
		return c.closed

	case StateOpen:
		c.state = StateClosing
		ctrls := make([]*controller, 0, len(c.services))
		for _, ctrl := range c.services {
			ctrls = append(ctrls, ctrl)
		}
		c.mu.Unlock()

		c.logger.Info("closing service container", "services", len(ctrls))
		go c.drain(ctrls)
		return c.closed

	default:
		c.mu.Unlock()
		return c.closed
	}
}

func (c *Container) drain(ctrls []*controller) {
	var g errgroup.Group
	for _, ctrl := range ctrls {
		removal := ctrl.remove()
		g.Go(func() error {
			_, err := removal.Wait(context.Background())
			return err
		})
	}
	_ = g.Wait()
	c.finalize()
}

func (c *Container) finalize() {
	c.finalizeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		loopStarted := c.loopStarted
		c.mu.Unlock()

		c.events.Close()
		if loopStarted {
			<-c.loopDone
		}
		if err := c.scheduler.Close(); err != nil {
			c.logger.Warn("scheduler did not shut down cleanly", "error", err)
		}

		c.logger.Info("service container closed")
		c.closed.Complete(struct{}{})
	})
}

// Close closes the container and waits up to timeout. On timeout the
// container is marked closed regardless and ErrCloseTimeout is returned; the
// remaining services keep draining in the background.
func (c *Container) Close(timeout time.Duration) error {
	closed := c.CloseAsync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := closed.Wait(ctx); err != nil {
		c.mu.Lock()
		c.state = StateClosed
		remaining := len(c.services)
		c.mu.Unlock()

		c.logger.Warn("service container did not close in time",
			"timeout", timeout,
			"remaining", remaining,
		)
		return fmt.Errorf("failed to close container within %s; %w", timeout, ErrCloseTimeout)
	}
	return nil
}
