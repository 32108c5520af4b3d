package node

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/leefowlercu/servicecontainer/internal/actor"
	"github.com/leefowlercu/servicecontainer/internal/events"
	"github.com/leefowlercu/servicecontainer/internal/manifest"
	"github.com/leefowlercu/servicecontainer/internal/metrics"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// InstallFunc installs a fresh instance of a service and returns its ready
// future.
type InstallFunc func() *actor.Future[any]

// Supervisor installs services and, for entries with an on_failure restart
// policy, installs them again with exponential backoff when their start
// fails. The container itself never retries.
type Supervisor struct {
	bus        events.Bus
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	running map[servicecontainer.ServiceName]*supervision
	wg      sync.WaitGroup
}

// supervision identifies one Supervise call so a finished goroutine only
// releases its own entry.
type supervision struct {
	cancel context.CancelFunc
}

// SupervisorOption configures Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the logger for supervision.
func WithSupervisorLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithBackoff sets the min and max backoff durations.
func WithBackoff(min, max time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if min > 0 {
			s.minBackoff = min
		}
		if max >= s.minBackoff {
			s.maxBackoff = max
		}
	}
}

// NewSupervisor creates a supervisor publishing restarts on bus, which may be
// nil.
func NewSupervisor(bus events.Bus, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		bus:        bus,
		logger:     slog.Default(),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		running:    make(map[servicecontainer.ServiceName]*supervision),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Supervise installs name through install and watches its ready future until
// it starts, fails for good, or supervision is cancelled. A previous
// supervision of the same name is cancelled first.
func (s *Supervisor) Supervise(ctx context.Context, name servicecontainer.ServiceName, policy manifest.RestartPolicy, install InstallFunc) {
	superviseCtx, cancel := context.WithCancel(ctx)
	sup := &supervision{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.running[name]; ok {
		prev.cancel()
	}
	s.running[name] = sup
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.release(name, sup)

		backoff := s.minBackoff
		for attempt := 1; ; attempt++ {
			_, err := install().Wait(superviseCtx)
			if err == nil {
				s.logger.Debug("supervised service started", "service", name, "attempt", attempt)
				return
			}
			if superviseCtx.Err() != nil {
				return
			}

			s.logger.Warn("service failed to start", "service", name, "attempt", attempt, "error", err)

			if policy != manifest.RestartOnFailure || !restartable(err) {
				return
			}

			s.logger.Info("restarting service after backoff", "service", name, "backoff", backoff)
			metrics.RecordRestart(name.String())
			if s.bus != nil {
				s.bus.Publish(superviseCtx, events.NewEvent(events.ServiceRestartScheduled, events.RestartEvent{
					Service: name,
					Attempt: attempt,
					Backoff: backoff,
					Cause:   err.Error(),
				}))
			}

			select {
			case <-superviseCtx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		}
	}()
}

// restartable reports whether a failed ready future is worth another
// install: the start itself failed, or the failed instance has not been
// removed yet.
func restartable(err error) bool {
	var startErr *servicecontainer.StartError
	return errors.As(err, &startErr) || errors.Is(err, servicecontainer.ErrServiceAlreadyExists)
}

func (s *Supervisor) release(name servicecontainer.ServiceName, sup *supervision) {
	sup.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	// A newer supervision may have replaced ours.
	if s.running[name] == sup {
		delete(s.running, name)
	}
}

// Cancel stops supervising name. The service itself is left installed.
func (s *Supervisor) Cancel(name servicecontainer.ServiceName) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sup, ok := s.running[name]; ok {
		sup.cancel()
		delete(s.running, name)
	}
}

// CancelAll stops all supervision and waits for the supervising goroutines.
func (s *Supervisor) CancelAll() {
	s.mu.Lock()
	for name, sup := range s.running {
		s.logger.Debug("canceling supervision", "service", name)
		sup.cancel()
	}
	s.running = make(map[servicecontainer.ServiceName]*supervision)
	s.mu.Unlock()

	s.wg.Wait()
}

// Supervising reports whether name is still being supervised.
func (s *Supervisor) Supervising(name servicecontainer.ServiceName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[name]
	return ok
}

// SupervisedCount returns the number of services still being supervised.
func (s *Supervisor) SupervisedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}
