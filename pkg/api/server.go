package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/reactflow/pkg/sales"
	"github.com/vnykmshr/reactflow/pkg/store"
)

// Route names, also used as the route label of HTTP metrics.
const (
	RouteCreateCustomer = "/customer/create"
	RouteFindCustomer   = "/customer/find-by-id"
	RouteCreateOrder    = "/order/create"
	RouteSummary        = "/sales/summary"
	RouteHealth         = "/health"
	RouteMetrics        = "/metrics"
)

// Server exposes a sales.Service over HTTP with JSON bodies.
type Server struct {
	service        *sales.Service
	pinger         store.Pinger
	logger         *slog.Logger
	metrics        *metrics.Registry
	gatherer       prometheus.Gatherer
	limiter        *bucket.Limiter
	requestTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request metrics in registry.
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Server) {
		s.metrics = registry
	}
}

// WithGatherer sets what /metrics exposes. The route is not registered
// without a gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithPinger makes /health report the store's reachability.
func WithPinger(p store.Pinger) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

// WithRateLimit rejects sales requests with 429 once limiter runs dry.
// /health and /metrics are not limited.
func WithRateLimit(limiter *bucket.Limiter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithRequestTimeout bounds how long a request may wait for its result.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// New creates a Server.
func New(service *sales.Service, opts ...Option) *Server {
	s := &Server{
		service: service,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST "+RouteCreateCustomer, s.observe(RouteCreateCustomer, s.withRateLimit(s.handleCreateCustomer)))
	mux.Handle("GET "+RouteFindCustomer, s.observe(RouteFindCustomer, s.withRateLimit(s.handleFindCustomer)))
	mux.Handle("POST "+RouteCreateOrder, s.observe(RouteCreateOrder, s.withRateLimit(s.handleCreateOrder)))
	mux.Handle("GET "+RouteSummary, s.observe(RouteSummary, s.withRateLimit(s.handleSummary)))
	mux.Handle("GET "+RouteHealth, s.observe(RouteHealth, s.handleHealth))

	if s.gatherer != nil {
		mux.Handle("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}
