package stream

import (
	"log/slog"

	"github.com/vnykmshr/reactflow/pkg/metrics"
)

// taps are side effects observed on the signals of a subscription.
type taps[T any] struct {
	subscribe func()
	cancel    func()
	each      func(Signal[T])
}

func tap[T any](s Stream[T], t taps[T]) producer[T] {
	return func(out *emitter[T]) {
		if t.subscribe != nil {
			t.subscribe()
		}
		if t.cancel != nil {
			out.onCancel(t.cancel)
		}
		each := t.each
		if each == nil {
			each = func(Signal[T]) {}
		}
		forward(out, s, Funcs[T]{
			Value: func(v T) {
				each(Signal[T]{Kind: SignalValue, Value: v})
				out.Next(v)
			},
			Error: func(err error) {
				each(Signal[T]{Kind: SignalError, Err: err})
				out.Error(err)
			},
			Complete: func() {
				each(Signal[T]{Kind: SignalComplete})
				out.Complete()
			},
		})
	}
}

func onNext[T any](f func(T)) func(Signal[T]) {
	return func(sig Signal[T]) {
		if sig.Kind == SignalValue {
			f(sig.Value)
		}
	}
}

func onError[T any](f func(error)) func(Signal[T]) {
	return func(sig Signal[T]) {
		if sig.Kind == SignalError {
			f(sig.Err)
		}
	}
}

func onComplete[T any](f func()) func(Signal[T]) {
	return func(sig Signal[T]) {
		if sig.Kind == SignalComplete {
			f()
		}
	}
}

func logTaps[T any](logger *slog.Logger, name string) taps[T] {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("stream", name)
	return taps[T]{
		subscribe: func() { logger.Info("onSubscribe") },
		cancel:    func() { logger.Info("cancel") },
		each: func(sig Signal[T]) {
			switch sig.Kind {
			case SignalValue:
				logger.Info("onNext", "value", sig.Value)
			case SignalError:
				logger.Error("onError", "error", sig.Err)
			case SignalComplete:
				logger.Info("onComplete")
			}
		},
	}
}

func meterTaps[T any](registry *metrics.Registry, name string) taps[T] {
	return taps[T]{
		subscribe: func() { registry.ObserveSubscription(name) },
		cancel:    func() { registry.ObserveSignal(name, "cancel") },
		each:      func(sig Signal[T]) { registry.ObserveSignal(name, sig.Kind.String()) },
	}
}

// DoOnNext calls f with every value before it is delivered.
func (m Many[T]) DoOnNext(f func(T)) Many[T] {
	return Many[T]{on: tap[T](m, taps[T]{each: onNext(f)})}
}

// DoOnError calls f with the terminating error before it is delivered.
func (m Many[T]) DoOnError(f func(error)) Many[T] {
	return Many[T]{on: tap[T](m, taps[T]{each: onError[T](f)})}
}

// DoOnComplete calls f before completion is delivered.
func (m Many[T]) DoOnComplete(f func()) Many[T] {
	return Many[T]{on: tap[T](m, taps[T]{each: onComplete[T](f)})}
}

// DoOnSubscribe calls f on every subscription, before the upstream starts.
func (m Many[T]) DoOnSubscribe(f func()) Many[T] {
	return Many[T]{on: tap[T](m, taps[T]{subscribe: f})}
}

// DoOnCancel calls f when a subscription is cancelled before terminating.
func (m Many[T]) DoOnCancel(f func()) Many[T] {
	return Many[T]{on: tap[T](m, taps[T]{cancel: f})}
}

// DoOnEach calls f with every signal before it is delivered.
func (m Many[T]) DoOnEach(f func(Signal[T])) Many[T] {
	return Many[T]{on: tap[T](m, taps[T]{each: f})}
}

// Log writes every signal to logger at info level, errors at error level.
func (m Many[T]) Log(logger *slog.Logger, name string) Many[T] {
	return Many[T]{on: tap[T](m, logTaps[T](logger, name))}
}

// Metered counts subscriptions and signals in registry under name.
func (m Many[T]) Metered(registry *metrics.Registry, name string) Many[T] {
	return Many[T]{on: tap[T](m, meterTaps[T](registry, name))}
}

// DoOnNext calls f with the value before it is delivered.
func (s Single[T]) DoOnNext(f func(T)) Single[T] {
	return Single[T]{on: tap[T](s, taps[T]{each: onNext(f)})}
}

// DoOnError calls f with the terminating error before it is delivered.
func (s Single[T]) DoOnError(f func(error)) Single[T] {
	return Single[T]{on: tap[T](s, taps[T]{each: onError[T](f)})}
}

// DoOnSubscribe calls f on every subscription, before the upstream starts.
func (s Single[T]) DoOnSubscribe(f func()) Single[T] {
	return Single[T]{on: tap[T](s, taps[T]{subscribe: f})}
}

// DoOnCancel calls f when a subscription is cancelled before terminating.
func (s Single[T]) DoOnCancel(f func()) Single[T] {
	return Single[T]{on: tap[T](s, taps[T]{cancel: f})}
}

// DoOnEach calls f with every signal before it is delivered.
func (s Single[T]) DoOnEach(f func(Signal[T])) Single[T] {
	return Single[T]{on: tap[T](s, taps[T]{each: f})}
}

// Log writes every signal to logger at info level, errors at error level.
func (s Single[T]) Log(logger *slog.Logger, name string) Single[T] {
	return Single[T]{on: tap[T](s, logTaps[T](logger, name))}
}

// Metered counts subscriptions and signals in registry under name.
func (s Single[T]) Metered(registry *metrics.Registry, name string) Single[T] {
	return Single[T]{on: tap[T](s, meterTaps[T](registry, name))}
}
