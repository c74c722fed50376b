// Package loop runs client work on one logical thread. Collaborator
// callbacks arrive on arbitrary goroutines and are posted here, so state
// owned by the session is only ever touched by the loop goroutine.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("event loop stopped")

// Scheduler accepts work for serial execution.
type Scheduler interface {
	// Post enqueues fn. It reports false if fn will never run.
	Post(fn func()) bool
}

// Loop is a Scheduler backed by one goroutine. Its queue is unbounded, so
// Post never blocks, including when called from work already on the loop.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// New returns a loop whose queue starts with room for size entries.
func New(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{
		queue: make([]func(), 0, size),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Run executes posted work until ctx is done. Work still queued at that
// point is dropped.
func (l *Loop) Run(ctx context.Context) {
	if l.running.Swap(true) {
		log.Warn().Str("module", "loop").Msg("already running")
		return
	}
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "loop").Msg("loop ctx done")
			return
		case <-l.wake:
		}
		for _, fn := range l.take() {
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	close(l.done)
}

func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits for it to finish. It must not be called from the
// loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Inline runs work immediately on the caller's goroutine. Callers must
// guarantee serial use themselves.
type Inline struct{}

func (Inline) Post(fn func()) bool {
	fn()
	return true
}
