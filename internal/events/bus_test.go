package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestEventBus_SubscribeFiltersByType(t *testing.T) {
	bus := NewBus()
	var started, all collector
	bus.Subscribe(ServiceStarted, started.handle)
	bus.SubscribeAll(all.handle)

	ctx := context.Background()
	_ = bus.Publish(ctx, NewEvent(ServiceStarted, nil))
	_ = bus.Publish(ctx, NewEvent(ServiceRemoved, nil))

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if started.count() != 1 {
		t.Errorf("typed subscriber received %d events, want 1", started.count())
	}
	if all.count() != 2 {
		t.Errorf("wildcard subscriber received %d events, want 2", all.count())
	}
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewBus()
	_ = bus.Close()

	if err := bus.Publish(context.Background(), NewEvent(ServiceStarted, nil)); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Publish() error = %v, want ErrBusClosed", err)
	}
	if !bus.Stats().IsClosed {
		t.Error("expected Stats to report closed")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var c collector
	unsubscribe := bus.SubscribeAll(c.handle)
	if bus.Stats().SubscriberCount != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", bus.Stats().SubscriberCount)
	}

	unsubscribe()
	unsubscribe()
	_ = bus.Publish(context.Background(), NewEvent(ServiceStarted, nil))

	if bus.Stats().SubscriberCount != 0 {
		t.Errorf("SubscriberCount = %d, want 0", bus.Stats().SubscriberCount)
	}
}

func TestEventBus_DropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(WithBufferSize(1))
	release := make(chan struct{})
	var c collector
	bus.SubscribeAll(func(e Event) {
		<-release
		c.handle(e)
	})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = bus.Publish(ctx, NewEvent(ServiceStarted, i))
	}
	close(release)
	_ = bus.Close()

	if c.count() >= 10 {
		t.Errorf("expected some events to be dropped, delivered %d", c.count())
	}
}

func TestEventBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()
	var c collector
	bus.SubscribeAll(func(e Event) {
		if e.Payload == "boom" {
			panic("handler")
		}
		c.handle(e)
	})

	ctx := context.Background()
	_ = bus.Publish(ctx, NewEvent(ServiceStarted, "boom"))
	_ = bus.Publish(ctx, NewEvent(ServiceStarted, "ok"))

	deadline := time.Now().Add(time.Second)
	for c.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = bus.Close()

	if c.count() != 1 {
		t.Errorf("delivered %d events after panic, want 1", c.count())
	}
}

func TestFromLifecycle(t *testing.T) {
	name := servicecontainer.NewServiceName("a")

	ev, ok := FromLifecycle(servicecontainer.Event{
		Type:     servicecontainer.EventStartFailed,
		Service:  name,
		Instance: "id-1",
		Payload:  errors.New("bind failed"),
	})
	if !ok {
		t.Fatal("expected start_failed to convert")
	}
	payload := ev.Payload.(ServiceEvent)
	if ev.Type != ServiceStartFailed || payload.Service != name || payload.Error != "bind failed" {
		t.Errorf("unexpected conversion %+v", ev)
	}

	if _, ok := FromLifecycle(servicecontainer.Event{Type: servicecontainer.EventDependentsStopped}); ok {
		t.Error("resolver notifications must not convert")
	}
}
