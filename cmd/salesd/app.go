package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/reactflow/pkg/api"
	"github.com/vnykmshr/reactflow/pkg/config"
	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/reactflow/pkg/sales"
	"github.com/vnykmshr/reactflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/reactflow/pkg/store"
	"github.com/vnykmshr/reactflow/pkg/store/memstore"
	"github.com/vnykmshr/reactflow/pkg/store/redisstore"
)

type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Registry
	gatherer  prometheus.Gatherer
	service   *sales.Service
	pinger    store.Pinger
	scheduler *scheduler.Scheduler
	closers   []func() error

	// listening is closed once the HTTP listener is bound; addr is then set.
	listening chan struct{}
	addr      string
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry, gatherer := cfg.NewMetrics()
	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   registry,
		gatherer:  gatherer,
		listening: make(chan struct{}),
	}

	customers, orders, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.service = sales.NewService(customers, orders,
		sales.WithLogger(logger.With("component", "sales")),
		sales.WithMetrics(registry),
	)

	a.scheduler = scheduler.New(scheduler.Config{
		Logger:  logger.With("component", "scheduler"),
		Metrics: registry,
	})
	if cfg.Report.Enabled {
		reporter := sales.NewReporter(a.service, registry, logger.With("component", "report"))
		if err := a.scheduler.ScheduleCron("sales-report", cfg.Report.Schedule, reporter); err != nil {
			return nil, fmt.Errorf("schedule report: %w", err)
		}
	}
	return a, nil
}

func (a *app) openStore() (store.Collection[sales.Customer], store.Collection[sales.Order], error) {
	var (
		customers store.Collection[sales.Customer]
		orders    store.Collection[sales.Order]
	)

	switch a.cfg.Store.Backend {
	case config.BackendRedis:
		rc := a.cfg.Store.Redis
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		a.closers = append(a.closers, client.Close)

		s, err := redisstore.New(redisstore.Config{
			Redis:   client,
			Prefix:  rc.Prefix,
			Timeout: rc.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		customers = redisstore.NewCollection[sales.Customer](s, "customers")
		orders = redisstore.NewCollection[sales.Order](s, "orders", sales.CustomerIDField)
		a.pinger = s
	default:
		s := memstore.New()
		customers = memstore.NewCollection[sales.Customer](s, "customers")
		orders = memstore.NewCollection[sales.Order](s, "orders")
		a.pinger = s
	}

	storeLogger := a.logger.With("component", "store")
	return store.Instrument(customers, a.metrics, storeLogger),
		store.Instrument(orders, a.metrics, storeLogger),
		nil
}

func (a *app) run(ctx context.Context) error {
	defer a.close()

	opts := []api.Option{
		api.WithLogger(a.logger.With("component", "http")),
		api.WithMetrics(a.metrics),
		api.WithGatherer(a.gatherer),
		api.WithPinger(a.pinger),
		api.WithRequestTimeout(a.cfg.Server.WriteTimeout),
	}
	if a.cfg.Server.RateLimit > 0 {
		limiter, err := bucket.New(bucket.Limit(a.cfg.Server.RateLimit), a.cfg.Server.Burst)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithRateLimit(limiter))
	}
	handler := api.New(a.service, opts...).Handler()

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	listener, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	a.addr = listener.Addr().String()
	close(a.listening)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("serving", "addr", a.addr, "store", a.cfg.Store.Backend)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		<-a.scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}
