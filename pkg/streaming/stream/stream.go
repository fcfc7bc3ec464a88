package stream

import (
	"context"
)

// Subscriber receives the signals of one subscription. For a given
// subscription the callbacks are never invoked concurrently: zero or more
// OnValue calls are followed by at most one OnError or OnComplete.
type Subscriber[T any] interface {
	OnValue(value T)
	OnError(err error)
	OnComplete()
}

// Subscription is the live execution of a stream.
type Subscription interface {
	// Cancel stops delivery, releases timers and cancels every upstream and
	// inner subscription. It is idempotent and a no-op after a terminal signal.
	Cancel()

	// Done is closed once the subscription terminated or was cancelled.
	Done() <-chan struct{}
}

// Stream is a lazy push-based producer. Every call to Subscribe starts an
// independent execution; cancelling ctx cancels the subscription.
type Stream[T any] interface {
	Subscribe(ctx context.Context, sub Subscriber[T]) Subscription
}

// Funcs adapts plain functions to a Subscriber. Nil fields are ignored.
type Funcs[T any] struct {
	Value    func(T)
	Error    func(error)
	Complete func()
}

func (f Funcs[T]) OnValue(value T) {
	if f.Value != nil {
		f.Value(value)
	}
}

func (f Funcs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f Funcs[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

// SignalKind identifies the kind of a Signal.
type SignalKind int

const (
	// SignalValue carries one element.
	SignalValue SignalKind = iota
	// SignalError terminates the stream with an error.
	SignalError
	// SignalComplete terminates the stream normally.
	SignalComplete
)

// String returns the string representation of SignalKind
func (k SignalKind) String() string {
	switch k {
	case SignalValue:
		return "value"
	case SignalError:
		return "error"
	case SignalComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Signal is one unit of communication between a producer and its subscriber.
type Signal[T any] struct {
	Kind  SignalKind
	Value T
	Err   error
}

// producer runs one execution of a stream, delivering through out.
type producer[T any] func(out *emitter[T])

// Many is a stream of zero or more values. The zero value is an empty stream.
type Many[T any] struct {
	on producer[T]
}

// Single is a stream of at most one value. A Single completes as soon as its
// value was delivered. The zero value is an empty Single.
type Single[T any] struct {
	on producer[T]
}

// Subscribe implements Stream.
func (m Many[T]) Subscribe(ctx context.Context, sub Subscriber[T]) Subscription {
	return run(ctx, sub, m.on, false)
}

// Subscribe implements Stream.
func (s Single[T]) Subscribe(ctx context.Context, sub Subscriber[T]) Subscription {
	return run(ctx, sub, s.on, true)
}

// Many views the Single as a Many.
func (s Single[T]) Many() Many[T] {
	return Many[T]{on: s.on}
}

// First returns a Single with the first value of m, or an empty Single when
// m completes without values. The upstream is cancelled after the first value.
func (m Many[T]) First() Single[T] {
	return First[T](m)
}

func run[T any](ctx context.Context, sub Subscriber[T], on producer[T], single bool) Subscription {
	if ctx == nil {
		ctx = context.Background()
	}
	if sub == nil {
		sub = Funcs[T]{}
	}

	e := newEmitter(ctx, sub, single)
	if ctx.Err() != nil {
		e.Cancel()
		return e
	}
	if on == nil {
		e.Complete()
		return e
	}
	on(e)
	return e
}

// forward subscribes sub to src on behalf of out, so that terminating or
// cancelling out cancels the upstream subscription.
func forward[U, T any](out *emitter[T], src Stream[U], sub Subscriber[U]) Subscription {
	return forwardCtx(out.ctx, out, src, sub)
}

func forwardCtx[U, T any](ctx context.Context, out *emitter[T], src Stream[U], sub Subscriber[U]) Subscription {
	s := src.Subscribe(ctx, sub)
	out.link(s)
	return s
}

// fail returns a producer that terminates immediately with err.
func fail[T any](err error) producer[T] {
	return func(out *emitter[T]) {
		out.Error(err)
	}
}
