// Package metrics provides Prometheus instrumentation for reactflow components.
//
// # Overview
//
// A Registry groups the collectors used across the module:
//   - Streams: subscriptions, delivered signals, applied error policy actions
//   - Document store: operations by outcome and their latency
//   - HTTP API: requests by route and status class, latency
//   - Sales: summary computations and the per-customer total gauge
//   - Scheduler: job runs by outcome and their duration
//
// # Custom Registry
//
// Use a dedicated Prometheus registry for isolation:
//
//	promRegistry := prometheus.NewRegistry()
//	registry := metrics.NewRegistry(promRegistry)
//
//	http.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
//
// # Optional Instrumentation
//
// All Observe* helpers are no-ops on a nil *Registry, and NewWithConfig
// returns nil when metrics are disabled, so components never need to guard
// their calls.
package metrics
