package servicecontainer

import "fmt"

// state is one phase of the controller state machine. handle returns the
// next state, which may be the receiver itself.
type state interface {
	phase() Phase
	handle(c *controller, m message) state
}

type awaitDependencies struct{}

func (s *awaitDependencies) phase() Phase { return PhaseAwaitingDependencies }

func (s *awaitDependencies) handle(c *controller, m message) state {
	switch m.kind {
	case msgDependenciesAvailable:
		return c.startService(m.values)
	case msgDependenciesUnavailable, msgRemove:
		return c.discard()
	}
	return c.ignore(s, m)
}

// awaitStart waits for an asynchronous start to complete.
type awaitStart struct {
	interruptible  bool
	stopAfterStart bool
}

func (s *awaitStart) phase() Phase { return PhaseStarting }

func (s *awaitStart) handle(c *controller, m message) state {
	switch m.kind {
	case msgStartCompleted:
		if m.err != nil {
			return c.failStart(m.err)
		}
		if s.stopAfterStart {
			c.ready.Fail(fmt.Errorf("service %s; %w", c.name, ErrRemovedBeforeStart))
			return c.stopService(false)
		}
		return c.completeStart()

	case msgDependenciesUnavailable, msgRemove:
		c.emitStopping()
		if !s.interruptible {
			s.stopAfterStart = true
			return s
		}
		c.ready.Fail(fmt.Errorf("service %s; %w", c.name, ErrStartInterrupted))
		c.cancelStart()
		return c.stopService(true)

	case msgDependentsStopped:
		// nothing can depend on a service that has not started
		return s
	}
	return c.ignore(s, m)
}

type started struct{}

func (s *started) phase() Phase { return PhaseStarted }

func (s *started) handle(c *controller, m message) state {
	switch m.kind {
	case msgDependenciesUnavailable, msgRemove:
		c.emitStopping()
		return &awaitDependentsStopped{}
	}
	return c.ignore(s, m)
}

type awaitDependentsStopped struct{}

func (s *awaitDependentsStopped) phase() Phase { return PhaseAwaitingDependents }

func (s *awaitDependentsStopped) handle(c *controller, m message) state {
	switch m.kind {
	case msgDependentsStopped:
		return c.stopService(false)
	case msgDependenciesUnavailable, msgRemove:
		return s
	}
	return c.ignore(s, m)
}

type awaitStop struct{}

func (s *awaitStop) phase() Phase { return PhaseStopping }

func (s *awaitStop) handle(c *controller, m message) state {
	switch m.kind {
	case msgStopCompleted:
		if m.err != nil {
			c.logger.Error("service failed to stop cleanly", "error", m.err)
		}
		return c.finish()
	case msgDependenciesUnavailable, msgRemove, msgDependentsStopped, msgStartCompleted:
		return s
	}
	return c.ignore(s, m)
}

type removed struct{}

func (removed) phase() Phase { return PhaseRemoved }

func (s removed) handle(c *controller, m message) state {
	return c.ignore(s, m)
}
