package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/vnykmshr/reactflow/pkg/common/validation"
	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
)

// Sink receives the values of a Create producer. Next reports false once the
// subscriber is gone; producers should return at that point.
type Sink[T any] interface {
	Next(value T) bool
}

// Just returns a Single emitting value.
func Just[T any](value T) Single[T] {
	return Single[T]{on: func(out *emitter[T]) {
		out.Next(value)
		out.Complete()
	}}
}

// Empty returns a Many that completes without values.
func Empty[T any]() Many[T] {
	return Many[T]{on: func(out *emitter[T]) { out.Complete() }}
}

// EmptySingle returns a Single that completes without a value.
func EmptySingle[T any]() Single[T] {
	return Single[T]{on: func(out *emitter[T]) { out.Complete() }}
}

// Fail returns a Many that terminates with err.
func Fail[T any](err error) Many[T] {
	return Many[T]{on: fail[T](err)}
}

// FailSingle returns a Single that terminates with err.
func FailSingle[T any](err error) Single[T] {
	return Single[T]{on: fail[T](err)}
}

// FromSlice returns a Many emitting values in order.
func FromSlice[T any](values []T) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		for _, v := range values {
			if !out.Next(v) {
				return
			}
		}
		out.Complete()
	}}
}

// Of returns a Many emitting values in order.
func Of[T any](values ...T) Many[T] {
	return FromSlice(values)
}

// Range returns a Many emitting count consecutive integers starting at start.
func Range(start, count int) Many[int] {
	if err := validation.ValidateNonNegativeInt("stream", "count", count); err != nil {
		return Fail[int](err)
	}
	return Many[int]{on: func(out *emitter[int]) {
		for i := 0; i < count; i++ {
			if !out.Next(start + i) {
				return
			}
		}
		out.Complete()
	}}
}

// DelayedSequence emits values spaced by interval on sched, the first one
// interval after subscription. A nil sched uses the wall clock.
func DelayedSequence[T any](values []T, interval time.Duration, sched timer.Scheduler) Many[T] {
	if err := validation.ValidatePositiveDuration("stream", "interval", interval); err != nil {
		return Fail[T](err)
	}
	sched = schedulerOrSystem(sched)

	return Many[T]{on: func(out *emitter[T]) {
		if len(values) == 0 {
			out.Complete()
			return
		}

		slot := &timerSlot{}
		out.onFinish(slot.stop)

		i := 0
		var tick func()
		tick = func() {
			v := values[i]
			i++
			last := i == len(values)
			if !last {
				slot.schedule(sched, interval, tick)
			}
			if out.Next(v) && last {
				out.Complete()
			}
		}
		slot.schedule(sched, interval, tick)
	}}
}

// Interval emits 0, 1, 2, ... every period on sched until cancelled.
func Interval(period time.Duration, sched timer.Scheduler) Many[int64] {
	if err := validation.ValidatePositiveDuration("stream", "period", period); err != nil {
		return Fail[int64](err)
	}
	sched = schedulerOrSystem(sched)

	return Many[int64]{on: func(out *emitter[int64]) {
		slot := &timerSlot{}
		out.onFinish(slot.stop)

		var n int64
		var tick func()
		tick = func() {
			v := n
			n++
			slot.schedule(sched, period, tick)
			out.Next(v)
		}
		slot.schedule(sched, period, tick)
	}}
}

// Defer builds the stream to run with factory on every subscription.
// A factory error terminates the subscription with that error.
func Defer[T any](factory func(ctx context.Context) (Stream[T], error)) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		s, err := factory(out.ctx)
		if err != nil {
			out.Error(err)
			return
		}
		if s == nil {
			out.Complete()
			return
		}
		forward(out, s, Subscriber[T](out))
	}}
}

// DeferSingle is Defer for a Single.
func DeferSingle[T any](factory func(ctx context.Context) (Single[T], error)) Single[T] {
	return Single[T]{on: func(out *emitter[T]) {
		s, err := factory(out.ctx)
		if err != nil {
			out.Error(err)
			return
		}
		forward(out, Stream[T](s), Subscriber[T](out))
	}}
}

// Create runs producer on its own goroutine for every subscription. Values
// pushed into the sink are delivered in order; a nil return completes the
// stream and a non-nil one terminates it with that error. ctx is cancelled
// when the subscription ends.
func Create[T any](producer func(ctx context.Context, sink Sink[T]) error) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		go func() {
			if err := callProducer(out, producer); err != nil {
				out.Error(err)
				return
			}
			out.Complete()
		}()
	}}
}

func callProducer[T any](out *emitter[T], producer func(context.Context, Sink[T]) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	return producer(out.ctx, out)
}

// FromCallable runs fn on its own goroutine for every subscription and emits
// its result.
func FromCallable[T any](fn func(ctx context.Context) (T, error)) Single[T] {
	return Single[T]{on: func(out *emitter[T]) {
		go func() {
			v, err := callOnce(out.ctx, fn)
			if err != nil {
				out.Error(err)
				return
			}
			out.Next(v)
			out.Complete()
		}()
	}}
}

func callOnce[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callable panic: %v", r)
		}
	}()
	return fn(ctx)
}

// FromChannel emits values received from ch until it is closed. Only one
// subscription should consume a given channel.
func FromChannel[T any](ch <-chan T) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		go func() {
			for {
				select {
				case <-out.ctx.Done():
					return
				case v, ok := <-ch:
					if !ok {
						out.Complete()
						return
					}
					if !out.Next(v) {
						return
					}
				}
			}
		}()
	}}
}
