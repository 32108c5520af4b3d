package servicecontainer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/servicecontainer/internal/actor"
)

func TestController_AsyncStartCompletesLater(t *testing.T) {
	c := newTestContainer(t)
	startDone := actor.NewFuture[struct{}]()
	svc := newTestService("a", nil)
	svc.onStart = func(ctx *StartContext) error {
		ctx.Async(startDone, false)
		return nil
	}

	ready := c.CreateService(NewServiceName("a"), svc).Install()
	eventually(t, func() bool {
		statuses := c.Services()
		return len(statuses) == 1 && statuses[0].Phase == PhaseStarting
	}, "service should be starting")
	assertPending(t, ready)

	startDone.Complete(struct{}{})
	value, err := await(t, ready)
	require.NoError(t, err)
	assert.Equal(t, "value-a", value)
}

func TestController_AsyncStartFailure(t *testing.T) {
	c := newTestContainer(t)
	svc := newTestService("a", nil)
	svc.onStart = func(ctx *StartContext) error {
		ctx.Run(func() error { return errors.New("port in use") })
		return nil
	}

	_, err := await(t, c.CreateService(NewServiceName("a"), svc).Install())
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.EqualError(t, startErr.Err, "port in use")
	eventually(t, func() bool { return !c.HasService(NewServiceName("a")) }, "failed service should be removed")
}

func TestController_RemoveDuringNonInterruptibleStart(t *testing.T) {
	c := newTestContainer(t)
	startDone := actor.NewFuture[struct{}]()
	interrupted := make(chan bool, 1)

	svc := newTestService("a", nil)
	svc.onStart = func(ctx *StartContext) error {
		ctx.Async(startDone, false)
		return nil
	}
	svc.onStop = func(ctx *StopContext) error {
		interrupted <- ctx.WasInterrupted()
		return nil
	}

	ready := c.CreateService(NewServiceName("a"), svc).Install()
	eventually(t, func() bool { return svc.starts.Load() == 1 }, "start should be invoked")

	removal := c.RemoveService(NewServiceName("a"))
	assertPending(t, removal)
	assertPending(t, ready)
	assert.Equal(t, int32(0), svc.stops.Load(), "stop must wait for start to finish")

	startDone.Complete(struct{}{})

	_, err := await(t, ready)
	require.ErrorIs(t, err, ErrRemovedBeforeStart)
	_, err = await(t, removal)
	require.NoError(t, err)
	assert.False(t, <-interrupted)
}

func TestController_RemoveDuringInterruptibleStart(t *testing.T) {
	c := newTestContainer(t)
	startDone := actor.NewFuture[struct{}]()
	interrupted := make(chan bool, 1)
	cancelled := make(chan struct{})

	svc := newTestService("a", nil)
	svc.onStart = func(ctx *StartContext) error {
		go func() {
			<-ctx.Context().Done()
			close(cancelled)
		}()
		ctx.Async(startDone, true)
		return nil
	}
	svc.onStop = func(ctx *StopContext) error {
		interrupted <- ctx.WasInterrupted()
		return nil
	}

	ready := c.CreateService(NewServiceName("a"), svc).Install()
	eventually(t, func() bool { return svc.starts.Load() == 1 }, "start should be invoked")

	_, err := await(t, c.RemoveService(NewServiceName("a")))
	require.NoError(t, err)

	_, err = await(t, ready)
	require.ErrorIs(t, err, ErrStartInterrupted)
	assert.True(t, <-interrupted)
	<-cancelled

	startDone.Complete(struct{}{})
}

func TestController_StartPanicIsContained(t *testing.T) {
	c := newTestContainer(t)
	svc := newTestService("a", nil)
	svc.onStart = func(*StartContext) error { panic("nil map") }

	_, err := await(t, c.CreateService(NewServiceName("a"), svc).Install())
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)

	// the container keeps working
	_, err = await(t, c.CreateService(NewServiceName("b"), newTestService("b", nil)).Install())
	require.NoError(t, err)
}

func TestController_DoubleAsyncIsProtocolViolation(t *testing.T) {
	c := newTestContainer(t)
	svc := newTestService("a", nil)
	svc.onStart = func(ctx *StartContext) error {
		ctx.Async(actor.CompletedFuture(struct{}{}), false)
		ctx.Async(actor.CompletedFuture(struct{}{}), false)
		return nil
	}

	_, err := await(t, c.CreateService(NewServiceName("a"), svc).Install())
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, NewServiceName("a"), protoErr.Service)
}

func TestController_StopErrorStillRemoves(t *testing.T) {
	c := newTestContainer(t)
	svc := newTestService("a", nil)
	svc.onStop = func(*StopContext) error { return errors.New("flush failed") }

	_, err := await(t, c.CreateService(NewServiceName("a"), svc).Install())
	require.NoError(t, err)

	_, err = await(t, c.RemoveService(NewServiceName("a")))
	require.NoError(t, err)
	assert.False(t, c.HasService(NewServiceName("a")))
}

func TestController_ContextAccessRules(t *testing.T) {
	c := newTestContainer(t)
	dep := NewServiceName("dep")
	other := NewServiceName("other")
	child := NewServiceName("child")

	_, err := await(t, c.CreateService(dep, newTestService("dep", nil)).Install())
	require.NoError(t, err)
	_, err = await(t, c.CreateService(other, newTestService("other", nil)).Install())
	require.NoError(t, err)

	var (
		depValue     any
		undeclared   error
		foreign      error
		childReady   *actor.Future[any]
		createdByCtx *StartContext
	)
	svc := newTestService("owner", nil)
	svc.onStart = func(ctx *StartContext) error {
		depValue, _ = ctx.Service(dep)
		_, undeclared = ctx.Service(other)
		_, foreign = await(t, ctx.RemoveService(other))
		childReady = ctx.CreateService(child, newTestService("child", nil)).Install()
		createdByCtx = ctx
		return nil
	}

	_, err = await(t, c.CreateService(NewServiceName("owner"), svc).Dependency(dep).Install())
	require.NoError(t, err)

	assert.Equal(t, "value-dep", depValue)
	assert.ErrorIs(t, undeclared, ErrUndeclaredDependency)
	assert.ErrorIs(t, foreign, ErrRemoveNotPermitted)
	assert.True(t, c.HasService(other))

	_, err = await(t, childReady)
	require.NoError(t, err)

	_, err = await(t, createdByCtx.RemoveService(child))
	require.NoError(t, err)
	assert.False(t, c.HasService(child))
}

func TestController_RejectedCreateGrantsNoRemoval(t *testing.T) {
	c := newTestContainer(t)
	other := NewServiceName("other")

	_, err := await(t, c.CreateService(other, newTestService("other", nil)).Install())
	require.NoError(t, err)

	var (
		duplicate error
		ownerCtx  *StartContext
	)
	owner := newTestService("owner", nil)
	owner.onStart = func(ctx *StartContext) error {
		_, duplicate = await(t, ctx.CreateService(other, newTestService("impostor", nil)).Install())
		ownerCtx = ctx
		return nil
	}

	_, err = await(t, c.CreateService(NewServiceName("owner"), owner).Install())
	require.NoError(t, err)
	assert.ErrorIs(t, duplicate, ErrServiceAlreadyExists)

	_, err = await(t, ownerCtx.RemoveService(other))
	assert.ErrorIs(t, err, ErrRemoveNotPermitted)
	assert.True(t, c.HasService(other))
}

func TestController_CreatedServiceDependsOnCreator(t *testing.T) {
	c := newTestContainer(t)
	j := &journal{}
	child := NewServiceName("child")

	var childReady *actor.Future[any]
	parent := newTestService("parent", j)
	parent.onStart = func(ctx *StartContext) error {
		childReady = ctx.CreateService(child, newTestService("child", j)).Install()
		return nil
	}

	_, err := await(t, c.CreateService(NewServiceName("parent"), parent).Install())
	require.NoError(t, err)
	_, err = await(t, childReady)
	require.NoError(t, err)

	_, err = await(t, c.RemoveService(NewServiceName("parent")))
	require.NoError(t, err)

	assert.Equal(t, []string{"start:parent", "start:child", "stop:child", "stop:parent"}, j.snapshot())
}
