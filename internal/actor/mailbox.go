package actor

import "sync"

// Mailbox is an unbounded FIFO queue with a single blocking receive side.
// Submissions never block; once closed, further submissions are rejected while
// items already queued remain available to Receive.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
	closed bool
}

// NewMailbox creates an empty open mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{signal: make(chan struct{}, 1)}
}

// Submit appends item. It reports false if the mailbox is closed.
func (m *Mailbox[T]) Submit(item T) bool {
	return m.SubmitAll(item)
}

// SubmitAll appends items as one contiguous batch; no other submission can be
// interleaved between them.
func (m *Mailbox[T]) SubmitAll(items ...T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.items = append(m.items, items...)
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// Receive blocks until an item is available and returns it. It returns false
// once the mailbox is closed and drained.
func (m *Mailbox[T]) Receive() (T, bool) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			item := m.items[0]
			var zero T
			m.items[0] = zero
			m.items = m.items[1:]
			m.mu.Unlock()
			return item, true
		}
		if m.closed {
			m.mu.Unlock()
			var zero T
			return zero, false
		}
		m.mu.Unlock()
		<-m.signal
	}
}

// Close stops accepting submissions and wakes any blocked receivers.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.signal)
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
