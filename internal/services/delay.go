package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leefowlercu/servicecontainer/internal/actor"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// KindDelay completes start and stop asynchronously after a delay. Options:
// start_delay and stop_delay (durations) and fail (bool) to fail the start
// once the delay has elapsed. An interruptible entry abandons its start when
// asked to stop.
const KindDelay = "delay"

// ErrDelayFailed is the start failure reported by a delay service with fail set.
var ErrDelayFailed = errors.New("delay service configured to fail")

type delay struct {
	name          string
	startDelay    time.Duration
	stopDelay     time.Duration
	fail          bool
	interruptible bool
}

func newDelay(def Definition) (servicecontainer.Service, error) {
	d := &delay{name: def.Entry.Name, interruptible: def.Entry.Interruptible}

	var err error
	if d.startDelay, err = time.ParseDuration(def.Entry.Option("start_delay", "0s")); err != nil {
		return nil, fmt.Errorf("invalid start_delay; %w", err)
	}
	if d.stopDelay, err = time.ParseDuration(def.Entry.Option("stop_delay", "0s")); err != nil {
		return nil, fmt.Errorf("invalid stop_delay; %w", err)
	}
	if d.fail, err = strconv.ParseBool(def.Entry.Option("fail", "false")); err != nil {
		return nil, fmt.Errorf("invalid fail; %w", err)
	}

	return d, nil
}

func (d *delay) Start(ctx *servicecontainer.StartContext) error {
	var failure error
	if d.fail {
		failure = ErrDelayFailed
	}
	ctx.Async(after(ctx.Context(), d.startDelay, failure), d.interruptible)
	return nil
}

func (d *delay) Stop(ctx *servicecontainer.StopContext) error {
	if d.stopDelay <= 0 {
		return nil
	}
	// The lifetime context is already cancelled for interrupted starts.
	ctx.Async(after(context.Background(), d.stopDelay, nil))
	return nil
}

func (d *delay) Get() any {
	return d.name
}

// after resolves with err once wait has elapsed, or with the context error
// if ctx ends first.
func after(ctx context.Context, wait time.Duration, err error) *actor.Future[struct{}] {
	f := actor.NewFuture[struct{}]()

	timer := time.AfterFunc(wait, func() {
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(struct{}{})
	})

	stop := context.AfterFunc(ctx, func() {
		if timer.Stop() {
			f.Fail(ctx.Err())
		}
	})
	f.OnComplete(func(struct{}, error) { stop() })

	return f
}
