package servicecontainer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/leefowlercu/servicecontainer/internal/actor"
)

// Phase is the externally visible lifecycle phase of a controller.
type Phase int32

// Controller phases, in lifecycle order.
const (
	PhaseAwaitingDependencies Phase = iota
	PhaseStarting
	PhaseStarted
	PhaseAwaitingDependents
	PhaseStopping
	PhaseRemoved
)

var phaseNames = [...]string{
	PhaseAwaitingDependencies: "awaiting_dependencies",
	PhaseStarting:             "starting",
	PhaseStarted:              "started",
	PhaseAwaitingDependents:   "awaiting_dependents",
	PhaseStopping:             "stopping",
	PhaseRemoved:              "removed",
}

func (p Phase) String() string {
	if int(p) >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Phases returns every phase in lifecycle order.
func Phases() []Phase {
	phases := make([]Phase, len(phaseNames))
	for i := range phaseNames {
		phases[i] = Phase(i)
	}
	return phases
}

type messageKind int

const (
	msgDependenciesAvailable messageKind = iota + 1
	msgDependenciesUnavailable
	msgDependentsStopped
	msgRemove
	msgStartCompleted
	msgStopCompleted
	msgGroupUpdate
)

var messageKindNames = map[messageKind]string{
	msgDependenciesAvailable:   "dependencies_available",
	msgDependenciesUnavailable: "dependencies_unavailable",
	msgDependentsStopped:       "dependents_stopped",
	msgRemove:                  "remove",
	msgStartCompleted:          "start_completed",
	msgStopCompleted:           "stop_completed",
	msgGroupUpdate:             "group_update",
}

func (k messageKind) String() string {
	return messageKindNames[k]
}

// message is the unit of a controller's mailbox.
type message struct {
	kind messageKind
	// values is a snapshot of dependency values, handed over with
	// msgDependenciesAvailable and never mutated afterwards.
	values map[ServiceName]any
	err    error
	update groupUpdate
}

type groupUpdate struct {
	binding *referenceBinding
	member  ServiceName
	value   any
	added   bool
}

// controller drives one installed service through its lifecycle. All fields
// below the mailbox are confined to the controller goroutine.
type controller struct {
	container    *Container
	name         ServiceName
	instance     string
	service      Service
	dependencies []ServiceName
	injectors    map[ServiceName][]Injector
	group        ServiceName
	references   []groupRef
	logger       *slog.Logger

	ready   *actor.Future[any]
	removal *actor.Future[struct{}]
	phase   atomic.Int32
	done    chan struct{}

	lifetime       context.Context
	cancelLifetime context.CancelFunc

	createdMu sync.Mutex
	created   map[ServiceName]struct{}

	mailbox *actor.Mailbox[message]

	state           state
	values          map[ServiceName]any
	cancelStart     context.CancelFunc
	injected        []Injector
	startedOnce     bool
	stoppingEmitted bool
	uninjected      bool
}

func newController(c *Container, b *Builder) *controller {
	instance := uuid.NewString()
	lifetime, cancel := context.WithCancel(context.Background())

	ctrl := &controller{
		container:      c,
		name:           b.name,
		instance:       instance,
		service:        b.service,
		dependencies:   b.dependencies,
		injectors:      b.injectors,
		group:          b.group,
		references:     b.references,
		logger:         c.logger.With("service", b.name.String(), "instance", instance),
		ready:          actor.NewFuture[any](),
		removal:        actor.NewFuture[struct{}](),
		done:           make(chan struct{}),
		lifetime:       lifetime,
		cancelLifetime: cancel,
		created:        make(map[ServiceName]struct{}),
		mailbox:        actor.NewMailbox[message](),
		state:          &awaitDependencies{},
	}
	ctrl.phase.Store(int32(PhaseAwaitingDependencies))
	return ctrl
}

func (c *controller) run() {
	defer close(c.done)

	for {
		m, ok := c.mailbox.Receive()
		if !ok {
			return
		}

		if m.kind == msgGroupUpdate {
			c.applyGroupUpdate(m.update)
			continue
		}

		next := c.state.handle(c, m)
		if next != c.state {
			c.logger.Debug("service phase changed",
				"from", c.state.phase().String(),
				"to", next.phase().String(),
				"trigger", m.kind.String(),
			)
			c.state = next
			c.phase.Store(int32(next.phase()))
		}
		if next.phase() == PhaseRemoved {
			return
		}
	}
}

// post delivers m to the controller. Messages posted after the controller
// reached its terminal state are discarded.
func (c *controller) post(m message) {
	c.mailbox.Submit(m)
}

func (c *controller) remove() *actor.Future[struct{}] {
	c.post(message{kind: msgRemove})
	return c.removal
}

func (c *controller) currentPhase() Phase {
	return Phase(c.phase.Load())
}

func (c *controller) declares(name ServiceName) bool {
	for _, dep := range c.dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

func (c *controller) recordCreated(name ServiceName) {
	c.createdMu.Lock()
	defer c.createdMu.Unlock()
	c.created[name] = struct{}{}
}

func (c *controller) hasCreated(name ServiceName) bool {
	c.createdMu.Lock()
	defer c.createdMu.Unlock()
	_, ok := c.created[name]
	return ok
}

func (c *controller) event(typ EventType, payload any) Event {
	return Event{
		Type:       typ,
		Service:    c.name,
		Instance:   c.instance,
		Payload:    payload,
		controller: c,
	}
}

func (c *controller) emit(typ EventType, payload any) {
	c.container.events.Submit(c.event(typ, payload))
}

func (c *controller) emitStopping() {
	if c.stoppingEmitted {
		return
	}
	c.stoppingEmitted = true
	c.emit(EventStopping, nil)
}

// invoke runs service code, converting panics into errors.
func (c *controller) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ProtocolError); ok {
				err = pe
				return
			}
			err = panicError(r)
		}
	}()
	return fn()
}

// await posts kind to the mailbox once completion resolves.
func (c *controller) await(completion Completion, kind messageKind) {
	go func() {
		<-completion.Done()
		c.post(message{kind: kind, err: completion.Err()})
	}()
}

func (c *controller) inject() error {
	for _, dep := range c.dependencies {
		value := c.values[dep]
		for _, inj := range c.injectors[dep] {
			if err := c.invoke(func() error { return inj.Inject(value) }); err != nil {
				return fmt.Errorf("failed to inject dependency %s; %w", dep, err)
			}
			c.injected = append(c.injected, inj)
		}
	}
	return nil
}

// uninject releases injectors and group references exactly once.
func (c *controller) uninject() {
	if c.uninjected {
		return
	}
	c.uninjected = true

	for i := len(c.injected) - 1; i >= 0; i-- {
		inj := c.injected[i]
		if err := c.invoke(func() error { inj.Uninject(); return nil }); err != nil {
			c.logger.Warn("injector failed to uninject", "error", err)
		}
	}
	c.injected = nil

	if !c.startedOnce {
		return
	}
	for _, r := range c.references {
		ref := r.ref
		if err := c.invoke(func() error { ref.Uninject(); return nil }); err != nil {
			c.logger.Warn("group reference failed to uninject", "group", r.group.String(), "error", err)
		}
	}
}

func (c *controller) applyGroupUpdate(u groupUpdate) {
	if c.uninjected {
		return
	}
	ref := u.binding.ref
	err := c.invoke(func() error {
		if u.added {
			ref.AddValue(u.member, u.value)
		} else {
			ref.RemoveValue(u.member, u.value)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("group reference callback failed",
			"group", u.binding.group.String(),
			"member", u.member.String(),
			"error", err,
		)
	}
}

func (c *controller) startService(values map[ServiceName]any) state {
	c.values = values
	if err := c.inject(); err != nil {
		return c.failStart(err)
	}

	ctx, cancel := context.WithCancel(c.lifetime)
	c.cancelStart = cancel
	sc := &StartContext{lifecycleContext: newLifecycleContext(c, ctx, "start")}

	c.logger.Debug("starting service")
	err := c.invoke(func() error { return c.service.Start(sc) })
	completion, interruptible := sc.seal()
	if err != nil {
		return c.failStart(err)
	}
	if completion == nil {
		return c.completeStart()
	}

	c.await(completion, msgStartCompleted)
	return &awaitStart{interruptible: interruptible}
}

func (c *controller) completeStart() state {
	var value any
	if err := c.invoke(func() error { value = c.service.Get(); return nil }); err != nil {
		c.logger.Error("service value unavailable after start", "error", err)
		c.ready.Fail(&StartError{Service: c.name, Err: err})
		c.emit(EventStartFailed, err)
		return c.stopService(false)
	}

	c.startedOnce = true
	c.logger.Info("service started")
	c.emit(EventStarted, value)
	c.ready.Complete(value)
	return &started{}
}

func (c *controller) failStart(err error) state {
	c.logger.Error("service failed to start", "error", err)
	c.ready.Fail(&StartError{Service: c.name, Err: err})
	c.emit(EventStartFailed, err)
	return c.finish()
}

func (c *controller) stopService(interrupted bool) state {
	sc := &StopContext{
		lifecycleContext: newLifecycleContext(c, c.lifetime, "stop"),
		interrupted:      interrupted,
	}

	c.logger.Debug("stopping service", "interrupted", interrupted)
	err := c.invoke(func() error { return c.service.Stop(sc) })
	completion, _ := sc.seal()
	if err != nil {
		c.logger.Error("service failed to stop cleanly", "error", err)
		return c.finish()
	}
	if completion == nil {
		return c.finish()
	}

	c.await(completion, msgStopCompleted)
	return &awaitStop{}
}

// finish ends the lifecycle of a service whose start was at least attempted.
func (c *controller) finish() state {
	c.uninject()
	c.cancelLifetime()
	c.mailbox.Close()
	c.container.events.SubmitAll(c.event(EventStopped, nil), c.event(EventRemoved, nil))
	c.logger.Info("service removed")
	return removed{}
}

// discard ends the lifecycle of a service that never attempted to start.
func (c *controller) discard() state {
	c.ready.Fail(fmt.Errorf("service %s; %w", c.name, ErrRemovedBeforeStart))
	c.cancelLifetime()
	c.mailbox.Close()
	c.emit(EventRemoved, nil)
	c.logger.Info("service removed before start")
	return removed{}
}

func (c *controller) ignore(s state, m message) state {
	c.logger.Debug("ignoring message in current phase",
		"phase", s.phase().String(),
		"message", m.kind.String(),
	)
	return s
}
