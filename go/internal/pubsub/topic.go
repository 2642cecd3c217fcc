// Package pubsub provides the typed notification surface the session
// controller exposes to decoupled observers. Each Topic carries exactly one
// payload type, and every subscription returns a cancel func so teardown is a
// checked operation rather than a leaked listener.
package pubsub

import "sync"

// Topic is a publish/subscribe channel for one payload type. The zero value
// is ready to use.
type Topic[T any] struct {
	mu   sync.Mutex
	subs map[int]func(T)
	next int
}

// Subscribe registers fn to be called for every published value. The
// returned cancel func removes the subscription and is safe to call more
// than once.
func (t *Topic[T]) Subscribe(fn func(T)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subs == nil {
		t.subs = make(map[int]func(T))
	}
	id := t.next
	t.next++
	t.subs[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish delivers v to every current subscriber. Handlers run on the
// publisher's goroutine; subscribers must not block.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	handlers := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Len returns the number of active subscriptions.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
