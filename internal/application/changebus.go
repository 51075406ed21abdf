package application

import (
	"sync"

	"github.com/google/uuid"
)

// ChangeBus is a synchronous publish/subscribe channel. Listeners are invoked
// outside the bus lock, so a listener may subscribe, unsubscribe or read the
// publisher's state. Notification order is unspecified.
type ChangeBus[T any] struct {
	mu        sync.Mutex
	listeners map[uuid.UUID]func(T)
}

// NewChangeBus creates an empty bus.
func NewChangeBus[T any]() *ChangeBus[T] {
	return &ChangeBus[T]{listeners: make(map[uuid.UUID]func(T))}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is a no-op.
func (b *ChangeBus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	id := uuid.New()

	b.mu.Lock()
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Publish invokes every listener registered at the time of the call exactly once.
func (b *ChangeBus[T]) Publish(v T) {
	b.mu.Lock()
	snapshot := make([]func(T), 0, len(b.listeners))
	for _, fn := range b.listeners {
		snapshot = append(snapshot, fn)
	}
	b.mu.Unlock()

	for _, fn := range snapshot {
		fn(v)
	}
}

// Len returns the number of registered listeners.
func (b *ChangeBus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
