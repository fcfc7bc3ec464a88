package stream

import (
	"sync"
	"sync/atomic"
)

// Concat subscribes to each stream in turn, starting the next one only after
// the previous one completed.
func Concat[T any](streams ...Stream[T]) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		c := &concatenator[T]{out: out, streams: streams}
		c.subscribe(0)
	}}
}

type concatenator[T any] struct {
	out     *emitter[T]
	streams []Stream[T]
}

func (c *concatenator[T]) subscribe(i int) {
	if !c.out.Active() {
		return
	}
	if i == len(c.streams) {
		c.out.Complete()
		return
	}
	forward(c.out, c.streams[i], Funcs[T]{
		Value:    func(v T) { c.out.Next(v) },
		Error:    c.out.Error,
		Complete: func() { c.subscribe(i + 1) },
	})
}

// Merge subscribes to all streams at once and interleaves their values in
// arrival order. It completes when every stream completed. The first error
// terminates the merged stream and cancels the remaining subscriptions.
func Merge[T any](streams ...Stream[T]) Many[T] {
	return Many[T]{on: func(out *emitter[T]) {
		if len(streams) == 0 {
			out.Complete()
			return
		}
		var remaining atomic.Int64
		remaining.Store(int64(len(streams)))
		for _, s := range streams {
			if !out.Active() {
				return
			}
			forward(out, s, Funcs[T]{
				Value: func(v T) { out.Next(v) },
				Error: out.Error,
				Complete: func() {
					if remaining.Add(-1) == 0 {
						out.Complete()
					}
				},
			})
		}
	}}
}

// Pair is a 2-way zip result.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is a 3-way zip result.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Zip2 pairs the values of a and b by arrival index. It completes as soon as
// one source completed and no further pair can be formed.
func Zip2[A, B any](a Stream[A], b Stream[B]) Many[Pair[A, B]] {
	return Many[Pair[A, B]]{on: func(out *emitter[Pair[A, B]]) {
		z := newZipper(out, 2, func(row []any) Pair[A, B] {
			return Pair[A, B]{First: as[A](row[0]), Second: as[B](row[1])}
		})
		zipSource(z, 0, a)
		zipSource(z, 1, b)
	}}
}

// Zip3 combines the values of a, b and c by arrival index.
func Zip3[A, B, C any](a Stream[A], b Stream[B], c Stream[C]) Many[Triple[A, B, C]] {
	return Many[Triple[A, B, C]]{on: func(out *emitter[Triple[A, B, C]]) {
		z := newZipper(out, 3, func(row []any) Triple[A, B, C] {
			return Triple[A, B, C]{First: as[A](row[0]), Second: as[B](row[1]), Third: as[C](row[2])}
		})
		zipSource(z, 0, a)
		zipSource(z, 1, b)
		zipSource(z, 2, c)
	}}
}

// ZipAll combines the values of any number of same-typed streams by arrival
// index. Zipping no streams completes immediately.
func ZipAll[T any](streams ...Stream[T]) Many[[]T] {
	return Many[[]T]{on: func(out *emitter[[]T]) {
		if len(streams) == 0 {
			out.Complete()
			return
		}
		z := newZipper(out, len(streams), func(row []any) []T {
			vs := make([]T, len(row))
			for i, v := range row {
				vs[i] = as[T](v)
			}
			return vs
		})
		for i, s := range streams {
			zipSource(z, i, s)
		}
	}}
}

func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

// zipper keeps one queue per source and emits a row whenever every queue has
// a head.
type zipper[R any] struct {
	out     *emitter[R]
	combine func([]any) R

	mu       sync.Mutex
	queues   [][]any
	finished []bool
}

func newZipper[R any](out *emitter[R], n int, combine func([]any) R) *zipper[R] {
	return &zipper[R]{
		out:      out,
		combine:  combine,
		queues:   make([][]any, n),
		finished: make([]bool, n),
	}
}

func zipSource[T, R any](z *zipper[R], i int, s Stream[T]) {
	if !z.out.Active() {
		return
	}
	forward(z.out, s, Funcs[T]{
		Value:    func(v T) { z.push(i, v) },
		Error:    z.out.Error,
		Complete: func() { z.finish(i) },
	})
}

func (z *zipper[R]) push(i int, v any) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.queues[i] = append(z.queues[i], v)
	for z.ready() {
		row := make([]any, len(z.queues))
		for j := range z.queues {
			row[j] = z.queues[j][0]
			z.queues[j] = z.queues[j][1:]
		}
		z.out.Next(z.combine(row))
	}
	z.checkExhausted()
}

func (z *zipper[R]) finish(i int) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.finished[i] = true
	z.checkExhausted()
}

func (z *zipper[R]) ready() bool {
	for _, q := range z.queues {
		if len(q) == 0 {
			return false
		}
	}
	return true
}

// checkExhausted completes once a finished source has nothing queued.
func (z *zipper[R]) checkExhausted() {
	for i, done := range z.finished {
		if done && len(z.queues[i]) == 0 {
			z.out.Complete()
			return
		}
	}
}
