/*
Package reactflow is a reactive streams library and a small sales service
built on it.

Streams (pkg/streaming):
  - stream: push-based Single and Many streams with cancellation, operators
    and ordered error policies

Scheduling (pkg/scheduling):
  - timer: injectable time source with a Virtual implementation for tests
  - scheduler: cron and interval jobs

Storage (pkg/store):
  - memstore: in-memory document collections
  - redisstore: Redis-backed collections with secondary indexes
  - storetest: contract tests shared by both backends

Sales service:
  - pkg/sales: customers, orders and the per-customer sales summary
  - pkg/api: JSON HTTP endpoints for the service
  - pkg/ratelimit/bucket: token bucket used to shed HTTP load
  - pkg/config, pkg/metrics: YAML configuration and Prometheus metrics
  - cmd/salesd: the service binary

Example usage:

	import (
		"github.com/vnykmshr/reactflow/pkg/streaming/stream"
	)

	evens := stream.Range(1, 10).Filter(func(n int) bool { return n%2 == 0 })
	squares := stream.Map[int, int](evens, func(n int) (int, error) { return n * n, nil })

	values, ok, err := stream.CollectSlice[int](squares).Block(ctx)

See examples/tutorial for a walk through every operator.
*/
package reactflow
