package servicecontainer

import (
	"context"
	"fmt"
	"sync"

	"github.com/leefowlercu/servicecontainer/internal/actor"
)

// lifecycleContext is shared by StartContext and StopContext. It is only valid
// for the duration of the Start or Stop call it was passed to, except for
// Service, CreateService and RemoveService, which may be used from
// asynchronous work started there.
type lifecycleContext struct {
	ctrl  *controller
	ctx   context.Context
	phase string

	mu            sync.Mutex
	completion    Completion
	interruptible bool
	sealed        bool
}

func newLifecycleContext(ctrl *controller, ctx context.Context, phase string) lifecycleContext {
	return lifecycleContext{ctrl: ctrl, ctx: ctx, phase: phase}
}

// Name returns the name of the service being started or stopped.
func (x *lifecycleContext) Name() ServiceName {
	return x.ctrl.name
}

// Context returns a context that is cancelled when the service's lifecycle
// ends, or earlier when an interruptible start is interrupted.
func (x *lifecycleContext) Context() context.Context {
	return x.ctx
}

// Service returns the value of a declared dependency.
func (x *lifecycleContext) Service(name ServiceName) (any, error) {
	if !x.ctrl.declares(name) {
		return nil, fmt.Errorf("service %s requested %s; %w", x.ctrl.name, name, ErrUndeclaredDependency)
	}
	return x.ctrl.values[name], nil
}

// CreateService starts building a service that depends on the current one.
// Once the container accepts the install, the current service is permitted to
// remove it.
func (x *lifecycleContext) CreateService(name ServiceName, service Service) *Builder {
	b := x.ctrl.container.CreateService(name, service).Dependency(x.ctrl.name)
	b.accepted = func() { x.ctrl.recordCreated(name) }
	return b
}

// RemoveService removes a declared dependency or a service created through
// this service's contexts.
func (x *lifecycleContext) RemoveService(name ServiceName) *actor.Future[struct{}] {
	if !x.ctrl.declares(name) && !x.ctrl.hasCreated(name) {
		return actor.FailedFuture[struct{}](
			fmt.Errorf("service %s cannot remove %s; %w", x.ctrl.name, name, ErrRemoveNotPermitted))
	}
	return x.ctrl.container.RemoveService(name)
}

// Scheduler returns the container's worker pool for asynchronous work.
func (x *lifecycleContext) Scheduler() *actor.Scheduler {
	return x.ctrl.container.scheduler
}

// Run executes fn on the scheduler and completes the current phase when fn
// returns. Run and Async may be used at most once per phase.
func (x *lifecycleContext) Run(fn func() error) {
	x.register(actor.Run(x.Scheduler(), fn), false)
}

func (x *lifecycleContext) register(c Completion, interruptible bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	switch {
	case c == nil:
		panic(&ProtocolError{Service: x.ctrl.name, Message: "nil completion registered during " + x.phase})
	case x.sealed:
		panic(&ProtocolError{Service: x.ctrl.name, Message: "asynchronous completion registered after " + x.phase + " returned"})
	case x.completion != nil:
		panic(&ProtocolError{Service: x.ctrl.name, Message: "asynchronous completion registered twice during " + x.phase})
	}
	x.completion = c
	x.interruptible = interruptible
}

// seal closes the registration window and returns what was registered.
func (x *lifecycleContext) seal() (Completion, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.sealed = true
	return x.completion, x.interruptible
}

// StartContext is passed to Service.Start.
type StartContext struct {
	lifecycleContext
}

// Async completes the start phase when c resolves. An interruptible start is
// abandoned as soon as the service is asked to stop: the ready future fails,
// Context is cancelled and Stop is invoked without waiting for c. A
// non-interruptible start always runs to completion before Stop is invoked.
func (x *StartContext) Async(c Completion, interruptible bool) {
	x.register(c, interruptible)
}

// StopContext is passed to Service.Stop.
type StopContext struct {
	lifecycleContext
	interrupted bool
}

// Async completes the stop phase when c resolves.
func (x *StopContext) Async(c Completion) {
	x.register(c, false)
}

// WasInterrupted reports whether the stop abandons an interrupted start.
func (x *StopContext) WasInterrupted() bool {
	return x.interrupted
}
