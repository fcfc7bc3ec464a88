package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
)

const (
	stateActive int32 = iota
	stateTerminated
	stateCancelled
)

// emitter is the delivery point of one subscription and its Subscription
// handle. Deliveries are serialised by mu; Cancel never takes mu so that it
// can be called from inside a callback.
type emitter[T any] struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	stopAfter func() bool

	sub    Subscriber[T]
	single bool

	mu    sync.Mutex
	state atomic.Int32
	done  chan struct{}

	hookMu      sync.Mutex
	finished    bool
	hooks       []func()
	cancelHooks []func()
	links       []linked
	nextLink    uint64
}

type linked struct {
	id  uint64
	sub Subscription
}

func newEmitter[T any](parent context.Context, sub Subscriber[T], single bool) *emitter[T] {
	ctx, cancel := context.WithCancel(parent)
	e := &emitter[T]{
		ctx:       ctx,
		cancelCtx: cancel,
		sub:       sub,
		single:    single,
		done:      make(chan struct{}),
	}
	e.stopAfter = context.AfterFunc(parent, e.Cancel)
	return e
}

// Next delivers value. It reports false once the subscription is no longer
// active, which producers use as their stop condition.
func (e *emitter[T]) Next(value T) bool {
	e.mu.Lock()
	if e.state.Load() != stateActive || e.ctx.Err() != nil {
		e.mu.Unlock()
		return false
	}
	if !e.single {
		e.sub.OnValue(value)
		e.mu.Unlock()
		return true
	}

	// A Single terminates with its value, whatever the subscriber does
	// with the subscription in between.
	if !e.state.CompareAndSwap(stateActive, stateTerminated) {
		e.mu.Unlock()
		return false
	}
	e.sub.OnValue(value)
	e.sub.OnComplete()
	e.mu.Unlock()
	e.finish()
	return false
}

// Error terminates the subscription with err.
func (e *emitter[T]) Error(err error) {
	e.terminate(func() { e.sub.OnError(err) })
}

// Complete terminates the subscription normally.
func (e *emitter[T]) Complete() {
	e.terminate(e.sub.OnComplete)
}

func (e *emitter[T]) terminate(deliver func()) {
	if e.ctx.Err() != nil {
		e.Cancel()
		return
	}

	e.mu.Lock()
	if !e.state.CompareAndSwap(stateActive, stateTerminated) {
		e.mu.Unlock()
		return
	}
	deliver()
	e.mu.Unlock()

	e.finish()
}

// Active reports whether signals can still be delivered.
func (e *emitter[T]) Active() bool {
	return e.state.Load() == stateActive && e.ctx.Err() == nil
}

func (e *emitter[T]) OnValue(value T)  { e.Next(value) }
func (e *emitter[T]) OnError(err error) { e.Error(err) }
func (e *emitter[T]) OnComplete()       { e.Complete() }

// Cancel implements Subscription.
func (e *emitter[T]) Cancel() {
	if !e.state.CompareAndSwap(stateActive, stateCancelled) {
		return
	}

	e.hookMu.Lock()
	hooks := e.cancelHooks
	e.cancelHooks = nil
	e.hookMu.Unlock()
	for _, h := range hooks {
		h()
	}

	e.finish()
}

// Done implements Subscription.
func (e *emitter[T]) Done() <-chan struct{} {
	return e.done
}

func (e *emitter[T]) finish() {
	e.cancelCtx()
	e.stopAfter()

	e.hookMu.Lock()
	e.finished = true
	hooks, links := e.hooks, e.links
	e.hooks, e.links, e.cancelHooks = nil, nil, nil
	e.hookMu.Unlock()

	for _, l := range links {
		l.sub.Cancel()
	}
	for _, h := range hooks {
		h()
	}
	close(e.done)
}

// onFinish registers f to run once the subscription terminates or is
// cancelled. It runs f immediately when that already happened.
func (e *emitter[T]) onFinish(f func()) {
	e.hookMu.Lock()
	if e.finished {
		e.hookMu.Unlock()
		f()
		return
	}
	e.hooks = append(e.hooks, f)
	e.hookMu.Unlock()
}

// onCancel registers f to run only when the subscription is cancelled.
func (e *emitter[T]) onCancel(f func()) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	if !e.finished {
		e.cancelHooks = append(e.cancelHooks, f)
	}
}

// link ties an upstream or inner subscription to this one. The returned
// func drops the link once s has terminated on its own.
func (e *emitter[T]) link(s Subscription) (unlink func()) {
	e.hookMu.Lock()
	if e.finished {
		e.hookMu.Unlock()
		s.Cancel()
		return func() {}
	}
	e.nextLink++
	id := e.nextLink
	e.links = append(e.links, linked{id: id, sub: s})
	e.hookMu.Unlock()

	return func() {
		e.hookMu.Lock()
		defer e.hookMu.Unlock()
		for i, l := range e.links {
			if l.id == id {
				e.links = append(e.links[:i], e.links[i+1:]...)
				return
			}
		}
	}
}

// linkCount reports the number of live links.
func (e *emitter[T]) linkCount() int {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	return len(e.links)
}

// timerSlot holds the single pending timer of a time-driven operator.
type timerSlot struct {
	mu      sync.Mutex
	t       timer.Timer
	stopped bool
}

func (s *timerSlot) schedule(sched timer.Scheduler, d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.t = sched.AfterFunc(d, f)
}

func (s *timerSlot) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
}

func schedulerOrSystem(sched timer.Scheduler) timer.Scheduler {
	if sched == nil {
		return timer.System()
	}
	return sched
}
