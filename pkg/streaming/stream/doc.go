/*
Package stream provides push-based reactive streams with composable
operators and ordered error policies.

Core Concepts:

A Stream delivers signals to a Subscriber: zero or more values followed by
exactly one terminal signal, an error or completion. Nothing is delivered
after the terminal signal or after the subscription was cancelled, and the
callbacks of one subscription never run concurrently.

Streams come in two cardinalities:
  - Many[T]: zero or more values
  - Single[T]: at most one value

Streams are lazy and restartable: every Subscribe starts an independent
execution with its own buffers.

Basic Usage:

	tens := stream.Map(stream.Range(1, 5), stream.Lift(func(i int) int { return i * 10 }))

	values, err := tens.ToSlice(ctx)

Or with explicit callbacks:

	sub := tens.Subscribe(ctx, stream.Funcs[int]{
		Value:    func(v int) { fmt.Println(v) },
		Error:    func(err error) { log.Println(err) },
		Complete: func() { fmt.Println("done") },
	})
	defer sub.Cancel()

Stream Creation:

	stream.Just(v)                                  // Single of one value
	stream.Of(1, 2, 3)                              // values in order
	stream.Range(start, count)                      // consecutive integers
	stream.DelayedSequence(values, interval, sched) // timer-driven values
	stream.Create(producer)                         // producer on its own goroutine
	stream.FromCallable(fn)                         // Single from a blocking call

In-memory sources emit synchronously inside Subscribe. Create, FromCallable
and FromChannel run on their own goroutine, and timer-driven sources deliver
on the scheduler's callback goroutine.

Operators:

	stream.Map, stream.FlatMap           // per-element transforms
	stream.Concat, stream.Merge          // sequential and interleaved combination
	stream.Zip2, stream.Zip3, ZipAll     // combination by arrival index
	m.SkipFirst, m.SkipLast, m.SkipUntil // positional and predicate filters
	stream.BufferCount, BufferTime       // windows by size or duration
	stream.Reduce, CollectSlice, CollectMap

Cancellation:

Cancel, or cancelling the subscribe context, stops delivery and releases
timers. It propagates synchronously to every upstream and inner
subscription, so FlatMap, Merge and Zip never leak pending work.

Error Policies:

A Policy is an ordered list of (matcher, action) entries. The first entry
matching an error applies:

	policy := stream.NewPolicy[int]().
		OnErrorContinue(stream.MatchKind(errors.KindProcessing)).
		OnErrorReturn(stream.MatchIs(ErrTimeout), -1).
		OnErrorResume(stream.MatchAny(), func(error) stream.Stream[int] { return fallback })

	safe := source.Recover(policy)

Continue entries skip elements whose Map or FlatMap function failed and keep
the stream going. They never apply to errors that terminate a stream.

Time:

Time-based operators take a timer.Scheduler. Use timer.System in production
and timer.Virtual in tests for deterministic time.
*/
package stream
