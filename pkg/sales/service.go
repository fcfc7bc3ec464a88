package sales

import (
	"io"
	"log/slog"

	"github.com/vnykmshr/reactflow/pkg/common/validation"
	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/store"
	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

// Service implements customer and order operations and the sales summary on
// top of two document collections.
type Service struct {
	customers store.Collection[Customer]
	orders    store.Collection[Order]
	logger    *slog.Logger
	metrics   *metrics.Registry
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for summary tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the registry that counts summary runs.
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Service) {
		s.metrics = registry
	}
}

// NewService creates a Service.
func NewService(customers store.Collection[Customer], orders store.Collection[Order], opts ...Option) *Service {
	s := &Service{
		customers: customers,
		orders:    orders,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCustomer stores c. The store assigns an id when c has none.
func (s *Service) CreateCustomer(c Customer) stream.Single[Customer] {
	if err := validation.ValidateNotEmpty("sales", "name", c.Name); err != nil {
		return stream.FailSingle[Customer](err)
	}
	return s.customers.Save(c)
}

// CreateOrder stores o.
func (s *Service) CreateOrder(o Order) stream.Single[Order] {
	if err := validation.ValidateNotEmpty("sales", CustomerIDField, o.CustomerID); err != nil {
		return stream.FailSingle[Order](err)
	}
	if err := validation.ValidateNonNegative("sales", "total", o.Total); err != nil {
		return stream.FailSingle[Order](err)
	}
	return s.orders.Save(o)
}

// FindCustomer looks a customer up by id. It completes empty when there is
// no such customer.
func (s *Service) FindCustomer(id string) stream.Single[Customer] {
	return s.customers.FindOneWhere(store.IDField, id)
}

// Customers streams every customer.
func (s *Service) Customers() stream.Many[Customer] {
	return s.customers.FindAll()
}

// OrdersOf streams the orders of one customer.
func (s *Service) OrdersOf(customerID string) stream.Many[Order] {
	return s.orders.FindWhere(CustomerIDField, customerID)
}

// OrderTotal sums the order totals of one customer, 0 when it has none.
func (s *Service) OrderTotal(customerID string) stream.Single[float64] {
	totals := stream.Map[Order, float64](s.OrdersOf(customerID), stream.Lift(func(o Order) float64 {
		return o.Total
	}))
	return stream.Reduce[float64, float64](totals, 0, func(acc, v float64) float64 {
		return acc + v
	})
}

// Summary computes the total sales of every customer, keyed by name.
// Customers without orders map to 0. Per-customer totals are computed
// concurrently; when two customers share a name, the total that completes
// last wins.
func (s *Service) Summary() stream.Single[map[string]float64] {
	perCustomer := stream.FlatMap[Customer, stream.Pair[string, float64]](s.Customers(),
		func(c Customer) (stream.Stream[stream.Pair[string, float64]], error) {
			return stream.Zip2[string, float64](stream.Just(c.Name), s.OrderTotal(c.ID)), nil
		})

	return stream.CollectMap[stream.Pair[string, float64], string, float64](perCustomer,
		func(p stream.Pair[string, float64]) string { return p.First },
		func(p stream.Pair[string, float64]) float64 { return p.Second },
	).DoOnEach(func(sig stream.Signal[map[string]float64]) {
		switch sig.Kind {
		case stream.SignalValue:
			s.logger.Debug("sales summary computed", "customers", len(sig.Value))
		case stream.SignalError:
			s.metrics.ObserveSummary(sig.Err)
			s.logger.Error("sales summary failed", "error", sig.Err)
		case stream.SignalComplete:
			s.metrics.ObserveSummary(nil)
		}
	})
}
