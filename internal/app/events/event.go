// Package events is the client's listener registry: one typed, ordered
// subscriber list per event category.
package events

import "sync"

// Handle identifies one registration. Handles are never reused within an
// Event, so removing by handle is removal by identity.
type Handle uint64

type subscriber[T any] struct {
	h  Handle
	fn func(T)
}

// Event is an ordered list of callbacks for a single category. The zero
// value is ready to use.
type Event[T any] struct {
	mu   sync.RWMutex
	last Handle
	subs []subscriber[T]
}

// On appends fn and returns its handle.
func (e *Event[T]) On(fn func(T)) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last++
	e.subs = append(e.subs, subscriber[T]{h: e.last, fn: fn})
	return e.last
}

// Off removes the registration for h. Unknown handles are ignored.
func (e *Event[T]) Off(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.h == h {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit calls every current subscriber synchronously, in registration order.
// Callbacks may register or remove subscribers; such changes apply from the
// next Emit.
func (e *Event[T]) Emit(v T) {
	e.mu.RLock()
	handlers := make([]func(T), len(e.subs))
	for i, s := range e.subs {
		handlers[i] = s.fn
	}
	e.mu.RUnlock()

	for _, fn := range handlers {
		fn(v)
	}
}

func (e *Event[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
