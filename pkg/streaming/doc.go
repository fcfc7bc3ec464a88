/*
Package streaming groups the reactive stream components of reactflow.

  - stream: push-based Single and Many streams, operators such as Map,
    FlatMap, Merge, Zip and BufferTime, and ordered error policies

Basic usage:

	totals := stream.Reduce(orders, 0.0, func(sum float64, o Order) float64 {
		return sum + o.Total
	})

	total, ok, err := totals.Block(ctx)

Every stream honours context cancellation and releases its timers and inner
subscriptions when cancelled.
*/
package streaming
