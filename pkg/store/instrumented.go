package store

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

// Instrumented decorates a Collection with store metrics and logging. Each
// subscription is timed from subscribe to its terminal signal.
type Instrumented[T Document[T]] struct {
	next     Collection[T]
	registry *metrics.Registry
	logger   *slog.Logger
}

// Instrument wraps c. A nil registry disables metrics and a nil logger
// disables logging.
func Instrument[T Document[T]](c Collection[T], registry *metrics.Registry, logger *slog.Logger) *Instrumented[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Instrumented[T]{
		next:     c,
		registry: registry,
		logger:   logger.With("collection", c.Name()),
	}
}

func (i *Instrumented[T]) Name() string {
	return i.next.Name()
}

func (i *Instrumented[T]) Save(doc T) stream.Single[T] {
	return observeSingle(i, "save", func() stream.Single[T] { return i.next.Save(doc) })
}

func (i *Instrumented[T]) FindAll() stream.Many[T] {
	return observeMany(i, "findAll", i.next.FindAll)
}

func (i *Instrumented[T]) FindWhere(field string, value any) stream.Many[T] {
	return observeMany(i, "findWhere", func() stream.Many[T] { return i.next.FindWhere(field, value) })
}

func (i *Instrumented[T]) FindOneWhere(field string, value any) stream.Single[T] {
	return observeSingle(i, "findOneWhere", func() stream.Single[T] { return i.next.FindOneWhere(field, value) })
}

// Ping forwards to the wrapped collection when it supports health checks.
func (i *Instrumented[T]) Ping(ctx context.Context) error {
	if p, ok := i.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (i *Instrumented[T]) observer(op string) func(stream.Signal[T]) {
	start := time.Now()
	return func(sig stream.Signal[T]) {
		if sig.Kind == stream.SignalValue {
			return
		}
		i.registry.ObserveStore(i.next.Name(), op, start, sig.Err)
		if sig.Err != nil {
			i.logger.Error("store operation failed", "op", op, "error", sig.Err)
			return
		}
		i.logger.Debug("store operation completed", "op", op, "duration", time.Since(start))
	}
}

func observeSingle[T Document[T]](i *Instrumented[T], op string, run func() stream.Single[T]) stream.Single[T] {
	return stream.DeferSingle(func(context.Context) (stream.Single[T], error) {
		return run().DoOnEach(i.observer(op)), nil
	})
}

func observeMany[T Document[T]](i *Instrumented[T], op string, run func() stream.Many[T]) stream.Many[T] {
	return stream.Defer(func(context.Context) (stream.Stream[T], error) {
		return run().DoOnEach(i.observer(op)), nil
	})
}
