package actor

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrSchedulerClosed is returned when work is submitted after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler runs submitted tasks on a fixed pool of worker goroutines. Tasks
// are taken in FIFO order; a panicking task is logged and does not take its
// worker down.
type Scheduler struct {
	tasks     *Mailbox[func()]
	group     errgroup.Group
	workers   int
	logger    *slog.Logger
	closeOnce sync.Once
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWorkers sets the number of worker goroutines. Values below one select
// runtime.NumCPU().
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.workers = n
	}
}

// WithSchedulerLogger sets the logger used to report task panics.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates a scheduler and starts its workers.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		tasks:  NewMailbox[func()](),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.NumCPU()
	}

	for i := 0; i < s.workers; i++ {
		s.group.Go(s.work)
	}

	return s
}

func (s *Scheduler) work() error {
	for {
		task, ok := s.tasks.Receive()
		if !ok {
			return nil
		}
		s.run(task)
	}
}

func (s *Scheduler) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "panic", r)
		}
	}()
	task()
}

// Submit queues task for execution. It reports false once the scheduler is
// closed.
func (s *Scheduler) Submit(task func()) bool {
	return s.tasks.Submit(task)
}

// Workers returns the size of the worker pool.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Close stops accepting tasks, runs every task already queued, and waits for
// the workers to exit.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(s.tasks.Close)
	return s.group.Wait()
}

// Run executes fn on the scheduler and returns a future resolved with its
// error. A panic inside fn fails the future.
func Run(s *Scheduler, fn func() error) *Future[struct{}] {
	return Call(s, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Call executes fn on the scheduler and returns a future resolved with its
// result. A panic inside fn fails the future.
func Call[T any](s *Scheduler, fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	ok := s.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				f.Fail(fmt.Errorf("task panicked: %v", r))
			}
		}()
		value, err := fn()
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(value)
	})
	if !ok {
		f.Fail(ErrSchedulerClosed)
	}
	return f
}
