package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/leefowlercu/servicecontainer/internal/metrics"
)

const defaultBufferSize = 256

// Bus is the publish/subscribe contract.
type Bus interface {
	// Publish delivers event to every interested subscriber without blocking
	// on slow subscribers.
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler for one event type.
	Subscribe(eventType EventType, handler EventHandler) (unsubscribe func())
	// SubscribeAll registers handler for every event type.
	SubscribeAll(handler EventHandler) (unsubscribe func())
	// Close stops the bus after delivering pending events.
	Close() error
}

type subscription struct {
	id        uint64
	eventType EventType // empty means all types
	handler   EventHandler
	events    chan Event
	closeOnce sync.Once
}

func (s *subscription) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// EventBus is the default Bus. Each subscriber gets a buffered channel and a
// goroutine; events for a full subscriber are dropped and counted.
type EventBus struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*subscription
	nextID        atomic.Uint64
	closed        atomic.Bool
	workers       sync.WaitGroup
	logger        *slog.Logger
	bufferSize    int
}

// BusOption configures the event bus.
type BusOption func(*EventBus)

// WithBufferSize sets the per-subscriber buffer size.
func WithBufferSize(size int) BusOption {
	return func(b *EventBus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets the logger for the event bus.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *EventBus) {
		b.logger = logger
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *EventBus {
	b := &EventBus{
		subscriptions: make(map[uint64]*subscription),
		bufferSize:    defaultBufferSize,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *EventBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// closed only flips under the write lock, so holding the read lock keeps
	// subscriber channels open for the rest of the loop
	if b.closed.Load() {
		return ErrBusClosed
	}

	for _, sub := range b.subscriptions {
		if sub.eventType != "" && sub.eventType != event.Type {
			continue
		}
		select {
		case sub.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			b.logger.Warn("event bus subscriber buffer full; dropping event",
				"event_type", event.Type,
				"subscriber_id", sub.id,
			)
			metrics.EventBusDroppedEvents.WithLabelValues(string(event.Type)).Inc()
		}
	}
	return nil
}

func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	return b.subscribe(eventType, handler)
}

func (b *EventBus) SubscribeAll(handler EventHandler) func() {
	return b.subscribe("", handler)
}

func (b *EventBus) subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return func() {}
	}
	sub := &subscription{
		id:        b.nextID.Add(1),
		eventType: eventType,
		handler:   handler,
		events:    make(chan Event, b.bufferSize),
	}
	b.subscriptions[sub.id] = sub
	b.workers.Add(1)
	b.mu.Unlock()

	go b.deliver(sub)

	return func() { b.unsubscribe(sub.id) }
}

// deliver runs handlers for one subscriber until its channel is closed and
// drained.
func (b *EventBus) deliver(sub *subscription) {
	defer b.workers.Done()
	for event := range sub.events {
		b.safeCall(sub, event)
	}
}

func (b *EventBus) safeCall(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscriber_id", sub.id,
				"event_type", event.Type,
				"panic", r,
			)
		}
	}()
	sub.handler(event)
}

func (b *EventBus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscriptions[id]
	delete(b.subscriptions, id)
	b.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Close stops accepting events, lets every subscriber drain its buffer and
// waits for their handlers to return.
func (b *EventBus) Close() error {
	b.mu.Lock()
	if b.closed.Swap(true) {
		b.mu.Unlock()
		return nil
	}
	subs := b.subscriptions
	b.subscriptions = make(map[uint64]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	b.workers.Wait()
	return nil
}

// Stats returns current bus statistics.
func (b *EventBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BusStats{
		SubscriberCount: len(b.subscriptions),
		IsClosed:        b.closed.Load(),
	}
}

// BusStats contains event bus statistics.
type BusStats struct {
	SubscriberCount int
	IsClosed        bool
}
