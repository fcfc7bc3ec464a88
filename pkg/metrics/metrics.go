// Package metrics provides Prometheus instrumentation for reactflow components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for reactflow components.
//
// Every helper method is safe to call on a nil *Registry, so components can
// treat instrumentation as optional.
type Registry struct {
	// Stream Metrics
	StreamSubscriptions *prometheus.CounterVec
	StreamSignals       *prometheus.CounterVec
	PolicyActions       *prometheus.CounterVec

	// Store Metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// HTTP Metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Sales Metrics
	SummaryRuns   *prometheus.CounterVec
	CustomerSales *prometheus.GaugeVec

	// Scheduled Job Metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by reactflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	cfg := DefaultConfig()
	cfg.Registry = reg
	return NewWithConfig(cfg)
}

// NewWithConfig creates a registry honouring the namespace and constant labels
// in cfg. It returns nil when cfg.Enabled is false.
func NewWithConfig(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Registry{
		// Stream Metrics
		StreamSubscriptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "subscriptions_total",
				Help:        "Total number of stream subscriptions",
				ConstLabels: cfg.Labels,
			},
			[]string{"stream"},
		),

		StreamSignals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "signals_total",
				Help:        "Total number of signals delivered by streams, by signal kind",
				ConstLabels: cfg.Labels,
			},
			[]string{"stream", "signal"},
		),

		PolicyActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "policy_actions_total",
				Help:        "Total number of error policy actions applied",
				ConstLabels: cfg.Labels,
			},
			[]string{"policy", "action"},
		),

		// Store Metrics
		StoreOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "store",
				Name:        "operations_total",
				Help:        "Total number of document store operations",
				ConstLabels: cfg.Labels,
			},
			[]string{"collection", "operation", "outcome"},
		),

		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "store",
				Name:        "operation_duration_seconds",
				Help:        "Time from subscription to terminal signal for store operations",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"collection", "operation"},
		),

		// HTTP Metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "http",
				Name:        "requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: cfg.Labels,
			},
			[]string{"route", "code"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "http",
				Name:        "request_duration_seconds",
				Help:        "Time spent serving HTTP requests",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"route"},
		),

		// Sales Metrics
		SummaryRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "sales",
				Name:        "summary_runs_total",
				Help:        "Total number of sales summary computations",
				ConstLabels: cfg.Labels,
			},
			[]string{"outcome"},
		),

		CustomerSales: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "sales",
				Name:        "customer_total",
				Help:        "Order total per customer name from the last reported summary",
				ConstLabels: cfg.Labels,
			},
			[]string{"customer"},
		),

		// Scheduled Job Metrics
		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "job_runs_total",
				Help:        "Total number of scheduled job runs, by outcome",
				ConstLabels: cfg.Labels,
			},
			[]string{"job", "outcome"},
		),

		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "job_duration_seconds",
				Help:        "Time spent running scheduled jobs",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"job"},
		),
	}
}

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveSubscription counts one subscription to the named stream.
func (r *Registry) ObserveSubscription(stream string) {
	if r == nil {
		return
	}
	r.StreamSubscriptions.WithLabelValues(stream).Inc()
}

// ObserveSignal counts one signal ("value", "error", "complete" or "cancel").
func (r *Registry) ObserveSignal(stream, signal string) {
	if r == nil {
		return
	}
	r.StreamSignals.WithLabelValues(stream, signal).Inc()
}

// ObservePolicyAction counts one applied error policy action.
func (r *Registry) ObservePolicyAction(policy, action string) {
	if r == nil {
		return
	}
	r.PolicyActions.WithLabelValues(policy, action).Inc()
}

// ObserveStore records a finished store operation that started at start.
func (r *Registry) ObserveStore(collection, operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.StoreOperations.WithLabelValues(collection, operation, Outcome(err)).Inc()
	r.StoreDuration.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}

// ObserveHTTP records a served request.
func (r *Registry) ObserveHTTP(route string, code int, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveSummary counts one summary computation.
func (r *Registry) ObserveSummary(err error) {
	if r == nil {
		return
	}
	r.SummaryRuns.WithLabelValues(Outcome(err)).Inc()
}

// SetCustomerSales replaces the per-customer gauges with summary.
func (r *Registry) SetCustomerSales(summary map[string]float64) {
	if r == nil {
		return
	}
	r.CustomerSales.Reset()
	for name, total := range summary {
		r.CustomerSales.WithLabelValues(name).Set(total)
	}
}

// ObserveJob records one scheduled job run.
func (r *Registry) ObserveJob(job string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.JobRuns.WithLabelValues(job, Outcome(err)).Inc()
	r.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// ObserveJobSkipped counts a run that was skipped because the previous one
// was still in flight.
func (r *Registry) ObserveJobSkipped(job string) {
	if r == nil {
		return
	}
	r.JobRuns.WithLabelValues(job, "skipped").Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
