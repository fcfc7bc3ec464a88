package stream

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/common/validation"
	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
)

// ElementOption configures how per-element failures of Map and FlatMap
// interact with error policies.
type ElementOption func(*elementConfig)

type elementConfig struct {
	resumeMapper bool
	resumeInner  bool
}

// NoResume makes mapper failures terminal even when a policy downstream has a
// matching continue entry.
func NoResume() ElementOption {
	return func(c *elementConfig) { c.resumeMapper = false }
}

// ResumeInner lets a continue entry also skip elements whose inner stream
// failed, not only elements whose mapper failed.
func ResumeInner() ElementOption {
	return func(c *elementConfig) { c.resumeInner = true }
}

func elementOptions(opts []ElementOption) elementConfig {
	cfg := elementConfig{resumeMapper: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Lift adapts an infallible function for Map.
func Lift[T, U any](f func(T) U) func(T) (U, error) {
	return func(v T) (U, error) { return f(v), nil }
}

func protect[T, U any](f func(T) (U, error), v T) (u U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f(v)
}

// elementFailed reports a ProcessingFailure for element and returns true when
// a policy downstream decided to skip the element instead.
func elementFailed[T any](out *emitter[T], resumable bool, err error) bool {
	if resumable && shouldContinue(out.ctx, err) {
		return true
	}
	out.Error(err)
	return false
}

// Map applies f to every value. An error or panic in f becomes a
// ProcessingFailure; unless a policy skips the element, the stream terminates.
func Map[T, U any](s Stream[T], f func(T) (U, error), opts ...ElementOption) Many[U] {
	cfg := elementOptions(opts)
	return Many[U]{on: func(out *emitter[U]) {
		forward(out, s, Funcs[T]{
			Value: func(v T) {
				u, err := protect(f, v)
				if err != nil {
					elementFailed(out, cfg.resumeMapper, rferrors.Processing("map", v, err))
					return
				}
				out.Next(u)
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// FlatMap subscribes to f(v) for every value v and merges the inner values
// downstream as they arrive. Values of one inner stream keep their order. The
// result completes once the upstream and every inner stream completed.
func FlatMap[T, U any](s Stream[T], f func(T) (Stream[U], error), opts ...ElementOption) Many[U] {
	cfg := elementOptions(opts)
	return Many[U]{on: func(out *emitter[U]) {
		fm := &flatMapper[T, U]{out: out, f: f, cfg: cfg, active: 1}
		forward(out, s, Subscriber[T](fm))
	}}
}

type flatMapper[T, U any] struct {
	out *emitter[U]
	f   func(T) (Stream[U], error)
	cfg elementConfig

	mu     sync.Mutex
	active int
}

func (fm *flatMapper[T, U]) OnValue(v T) {
	inner, err := protect(fm.f, v)
	if err != nil {
		elementFailed(fm.out, fm.cfg.resumeMapper, rferrors.Processing("flatMap", v, err))
		return
	}
	if inner == nil {
		return
	}

	fm.mu.Lock()
	fm.active++
	fm.mu.Unlock()
	in := &flatInner[T, U]{fm: fm, element: v}
	sub := inner.Subscribe(fm.out.ctx, Subscriber[U](in))
	in.attach(fm.out.link(sub))
}

func (fm *flatMapper[T, U]) OnError(err error) { fm.out.Error(err) }
func (fm *flatMapper[T, U]) OnComplete()       { fm.release() }

func (fm *flatMapper[T, U]) release() {
	fm.mu.Lock()
	fm.active--
	n := fm.active
	fm.mu.Unlock()
	if n == 0 {
		fm.out.Complete()
	}
}

type flatInner[T, U any] struct {
	fm      *flatMapper[T, U]
	element T

	mu     sync.Mutex
	done   bool
	unlink func()
}

func (in *flatInner[T, U]) OnValue(u U) { in.fm.out.Next(u) }

func (in *flatInner[T, U]) OnComplete() {
	in.detach()
	in.fm.release()
}

func (in *flatInner[T, U]) OnError(err error) {
	err = rferrors.Upstream("flatMap", err)
	if in.fm.cfg.resumeInner && shouldContinue(in.fm.out.ctx, rferrors.Processing("flatMap", in.element, err)) {
		in.detach()
		in.fm.release()
		return
	}
	in.fm.out.Error(err)
}

// attach records how to drop the outer link. Inner streams that already
// terminated during Subscribe are unlinked at once.
func (in *flatInner[T, U]) attach(unlink func()) {
	in.mu.Lock()
	if in.done {
		in.mu.Unlock()
		unlink()
		return
	}
	in.unlink = unlink
	in.mu.Unlock()
}

func (in *flatInner[T, U]) detach() {
	in.mu.Lock()
	in.done = true
	unlink := in.unlink
	in.unlink = nil
	in.mu.Unlock()
	if unlink != nil {
		unlink()
	}
}

// Filter keeps the values matching pred.
func (m Many[T]) Filter(pred func(T) bool) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		forward(out, Stream[T](m), Funcs[T]{
			Value: func(v T) {
				if pred(v) {
					out.Next(v)
				}
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// Take emits the first n values and then completes, cancelling the upstream.
func (m Many[T]) Take(n int) Many[T] {
	if err := validation.ValidateNonNegativeInt("stream", "take", n); err != nil {
		return Fail[T](err)
	}
	return Many[T]{on: func(out *emitter[T]) {
		if n == 0 {
			out.Complete()
			return
		}
		var seen atomic.Int64
		forward(out, Stream[T](m), Funcs[T]{
			Value: func(v T) {
				c := seen.Add(1)
				if c > int64(n) {
					return
				}
				out.Next(v)
				if c == int64(n) {
					out.Complete()
				}
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// SkipFirst drops the first n values.
func (m Many[T]) SkipFirst(n int) Many[T] {
	if err := validation.ValidateNonNegativeInt("stream", "skip", n); err != nil {
		return Fail[T](err)
	}
	return Many[T]{on: func(out *emitter[T]) {
		skipped := 0
		forward(out, Stream[T](m), Funcs[T]{
			Value: func(v T) {
				if skipped < n {
					skipped++
					return
				}
				out.Next(v)
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// SkipLast drops the last n values. Values are held back until it is known
// they are not among the final n.
func (m Many[T]) SkipLast(n int) Many[T] {
	if err := validation.ValidateNonNegativeInt("stream", "skipLast", n); err != nil {
		return Fail[T](err)
	}
	return Many[T]{on: func(out *emitter[T]) {
		held := make([]T, 0, n)
		forward(out, Stream[T](m), Funcs[T]{
			Value: func(v T) {
				if n == 0 {
					out.Next(v)
					return
				}
				held = append(held, v)
				if len(held) > n {
					head := held[0]
					held = held[1:]
					out.Next(head)
				}
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// SkipUntil drops values until pred matches; the matching value and every
// value after it are emitted.
func (m Many[T]) SkipUntil(pred func(T) bool) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		open := false
		forward(out, Stream[T](m), Funcs[T]{
			Value: func(v T) {
				if !open && !pred(v) {
					return
				}
				open = true
				out.Next(v)
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// SkipWhile drops values while pred matches.
func (m Many[T]) SkipWhile(pred func(T) bool) Many[T] {
	return m.SkipUntil(func(v T) bool { return !pred(v) })
}

// SkipFor drops values arriving within d of subscription, measured on sched.
func (m Many[T]) SkipFor(d time.Duration, sched timer.Scheduler) Many[T] {
	if d < 0 {
		return Fail[T](rferrors.NewValidationError("stream", "skipFor", d, "cannot be negative"))
	}
	sched = schedulerOrSystem(sched)
	return Many[T]{on: func(out *emitter[T]) {
		var open atomic.Bool
		if d == 0 {
			open.Store(true)
		} else {
			slot := &timerSlot{}
			out.onFinish(slot.stop)
			slot.schedule(sched, d, func() { open.Store(true) })
		}
		forward(out, Stream[T](m), Funcs[T]{
			Value: func(v T) {
				if open.Load() {
					out.Next(v)
				}
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// DelayElements shifts every value by d on sched, preserving order. Errors
// are delivered without delay; completion waits for the queued values.
func (m Many[T]) DelayElements(d time.Duration, sched timer.Scheduler) Many[T] {
	if err := validation.ValidatePositiveDuration("stream", "delay", d); err != nil {
		return Fail[T](err)
	}
	sched = schedulerOrSystem(sched)
	return Many[T]{on: func(out *emitter[T]) {
		dl := &delayer[T]{out: out, d: d, sched: sched}
		out.onFinish(dl.slot.stop)
		forward(out, Stream[T](m), Subscriber[T](dl))
	}}
}

type delayer[T any] struct {
	out   *emitter[T]
	d     time.Duration
	sched timer.Scheduler
	slot  timerSlot

	mu        sync.Mutex
	queue     []T
	running   bool
	completed bool
}

func (dl *delayer[T]) OnValue(v T) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.queue = append(dl.queue, v)
	if !dl.running {
		dl.running = true
		dl.slot.schedule(dl.sched, dl.d, dl.tick)
	}
}

func (dl *delayer[T]) tick() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	v := dl.queue[0]
	dl.queue = dl.queue[1:]
	if len(dl.queue) > 0 {
		dl.slot.schedule(dl.sched, dl.d, dl.tick)
	} else {
		dl.running = false
	}
	dl.out.Next(v)
	if !dl.running && dl.completed {
		dl.out.Complete()
	}
}

func (dl *delayer[T]) OnError(err error) { dl.out.Error(err) }

func (dl *delayer[T]) OnComplete() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.completed = true
	if !dl.running {
		dl.out.Complete()
	}
}

// BufferCount groups values into slices of n. The last slice may be shorter.
func BufferCount[T any](s Stream[T], n int) Many[[]T] {
	if err := validation.ValidatePositive("stream", "size", n); err != nil {
		return Fail[[]T](err)
	}
	return Many[[]T]{on: func(out *emitter[[]T]) {
		var buf []T
		forward(out, s, Funcs[T]{
			Value: func(v T) {
				buf = append(buf, v)
				if len(buf) == n {
					batch := buf
					buf = nil
					out.Next(batch)
				}
			},
			Error: out.Error,
			Complete: func() {
				if len(buf) > 0 {
					out.Next(buf)
				}
				out.Complete()
			},
		})
	}}
}

// BufferTime groups the values arriving in consecutive windows of length d,
// measured on sched from subscription. Empty windows are not emitted; the
// pending window is flushed when the upstream completes.
func BufferTime[T any](s Stream[T], d time.Duration, sched timer.Scheduler) Many[[]T] {
	if err := validation.ValidatePositiveDuration("stream", "window", d); err != nil {
		return Fail[[]T](err)
	}
	sched = schedulerOrSystem(sched)
	return Many[[]T]{on: func(out *emitter[[]T]) {
		w := &windower[T]{out: out, d: d, sched: sched}
		out.onFinish(w.slot.stop)
		w.slot.schedule(sched, d, w.tick)
		forward(out, s, Subscriber[T](w))
	}}
}

type windower[T any] struct {
	out   *emitter[[]T]
	d     time.Duration
	sched timer.Scheduler
	slot  timerSlot

	mu  sync.Mutex
	buf []T
}

func (w *windower[T]) tick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.slot.schedule(w.sched, w.d, w.tick)
	if len(w.buf) == 0 {
		return
	}
	batch := w.buf
	w.buf = nil
	w.out.Next(batch)
}

func (w *windower[T]) OnValue(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, v)
}

func (w *windower[T]) OnError(err error) { w.out.Error(err) }

func (w *windower[T]) OnComplete() {
	w.slot.stop()
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		batch := w.buf
		w.buf = nil
		w.out.Next(batch)
	}
	w.out.Complete()
}

// Reduce folds all values into one, starting from seed. An empty upstream
// yields seed.
func Reduce[T, U any](s Stream[T], seed U, f func(acc U, v T) U) Single[U] {
	return Single[U]{on: func(out *emitter[U]) {
		acc := seed
		forward(out, s, Funcs[T]{
			Value: func(v T) { acc = f(acc, v) },
			Error: out.Error,
			Complete: func() {
				out.Next(acc)
				out.Complete()
			},
		})
	}}
}

// CollectSlice gathers all values in order.
func CollectSlice[T any](s Stream[T]) Single[[]T] {
	return Reduce(s, []T(nil), func(acc []T, v T) []T { return append(acc, v) }).
		mapValue(func(vs []T) []T {
			if vs == nil {
				return []T{}
			}
			return vs
		})
}

// CollectMap gathers all values into a map. When keys collide the last value
// wins.
func CollectMap[T any, K comparable, V any](s Stream[T], key func(T) K, value func(T) V) Single[map[K]V] {
	return Single[map[K]V]{on: func(out *emitter[map[K]V]) {
		m := make(map[K]V)
		forward(out, s, Funcs[T]{
			Value: func(v T) { m[key(v)] = value(v) },
			Error: out.Error,
			Complete: func() {
				out.Next(m)
				out.Complete()
			},
		})
	}}
}

// First emits the first value of s and cancels it, or completes empty.
func First[T any](s Stream[T]) Single[T] {
	return Single[T]{on: func(out *emitter[T]) {
		forward(out, s, Funcs[T]{
			Value: func(v T) {
				out.Next(v)
				out.Complete()
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}

// mapValue transforms the value of a Single with an infallible function.
func (s Single[T]) mapValue(f func(T) T) Single[T] {
	return Single[T]{on: func(out *emitter[T]) {
		forward(out, Stream[T](s), Funcs[T]{
			Value:    func(v T) { out.Next(f(v)) },
			Error:    out.Error,
			Complete: out.Complete,
		})
	}}
}
