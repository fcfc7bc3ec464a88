package sales

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/vnykmshr/reactflow/pkg/metrics"
)

// Reporter periodically publishes the sales summary as per-customer gauges.
// It implements scheduler.Job.
type Reporter struct {
	service *Service
	metrics *metrics.Registry
	logger  *slog.Logger
}

// NewReporter creates a Reporter. Both registry and logger may be nil.
func NewReporter(service *Service, registry *metrics.Registry, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{service: service, metrics: registry, logger: logger}
}

// Run computes the summary once and publishes it. The gauges are left
// untouched when the computation fails.
func (r *Reporter) Run(ctx context.Context) error {
	summary, _, err := r.service.Summary().Block(ctx)
	if err != nil {
		return err
	}

	r.metrics.SetCustomerSales(summary)

	names := make([]string, 0, len(summary))
	var total float64
	for name, sum := range summary {
		names = append(names, name)
		total += sum
	}
	sort.Strings(names)

	r.logger.Info("sales report", "customers", len(summary), "total", total)
	for _, name := range names {
		r.logger.Debug("customer sales", "customer", name, "total", summary[name])
	}
	return nil
}
