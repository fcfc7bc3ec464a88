package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/reactflow/internal/testutil"
	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/reactflow/pkg/sales"
	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
	"github.com/vnykmshr/reactflow/pkg/store/memstore"
)

type fixture struct {
	server   *httptest.Server
	store    *memstore.Store
	registry *metrics.Registry
	logs     *testutil.LogBuffer
}

func newFixture(t *testing.T, storeOpts ...memstore.Option) *fixture {
	t.Helper()
	s := memstore.New(storeOpts...)
	svc := sales.NewService(
		memstore.NewCollection[sales.Customer](s, "customers"),
		memstore.NewCollection[sales.Order](s, "orders"),
	)
	reg := prometheus.NewRegistry()
	registry := metrics.NewRegistry(reg)
	logs := testutil.NewLogBuffer()

	api := New(svc,
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
		WithMetrics(registry),
		WithGatherer(reg),
		WithPinger(s),
		WithRequestTimeout(5*time.Second),
	)
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	return &fixture{server: server, store: s, registry: registry, logs: logs}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestSalesScenario(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"id":"1","name":"Alice"}`,
		`{"id":"2","name":"Bob"}`,
		`{"id":"3","name":"Cara"}`,
	} {
		status, _ := f.do(t, http.MethodPost, RouteCreateCustomer, body)
		require.Equal(t, http.StatusOK, status)
	}
	for _, body := range []string{
		`{"customerId":"1","total":10.0}`,
		`{"customerId":"1","total":5.0}`,
		`{"customerId":"2","total":7.0}`,
	} {
		status, _ := f.do(t, http.MethodPost, RouteCreateOrder, body)
		require.Equal(t, http.StatusOK, status)
	}

	status, body := f.do(t, http.MethodGet, RouteSummary, "")
	require.Equal(t, http.StatusOK, status)

	var summary map[string]float64
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, map[string]float64{"Alice": 15, "Bob": 7, "Cara": 0}, summary)
}

func TestCreateCustomerAssignsID(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, RouteCreateCustomer, `{"name":"Dana","email":"dana@example.com"}`)
	require.Equal(t, http.StatusOK, status)

	var created sales.Customer
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Dana", created.Name)

	status, body = f.do(t, http.MethodGet, RouteFindCustomer+"?id="+created.ID, "")
	require.Equal(t, http.StatusOK, status)
	var found sales.Customer
	require.NoError(t, json.Unmarshal([]byte(body), &found))
	assert.Equal(t, created, found)
}

func TestFindCustomer(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, RouteFindCustomer+"?id=nobody", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body, "a missing customer is an empty response")

	status, body = f.do(t, http.MethodGet, RouteFindCustomer, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, `"error"`)
}

func TestValidationFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		route string
		body  string
	}{
		{"malformed customer", RouteCreateCustomer, `{"name":`},
		{"customer without name", RouteCreateCustomer, `{"email":"x@example.com"}`},
		{"order without customer", RouteCreateOrder, `{"total":3}`},
		{"negative order", RouteCreateOrder, `{"customerId":"1","total":-3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, tt.route, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)

			var resp errorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Equal(t, 0, f.store.Len("customers"))
	assert.Equal(t, 0, f.store.Len("orders"))
}

func TestPersistenceFailureIsUnavailable(t *testing.T) {
	f := newFixture(t, memstore.WithFailure(func(collection, op string) error {
		return errors.New("store offline")
	}))

	status, body := f.do(t, http.MethodGet, RouteSummary, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "store offline")

	status, _ = f.do(t, http.MethodPost, RouteCreateCustomer, `{"name":"Eve"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, body = f.do(t, http.MethodGet, RouteHealth, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "unavailable")

	assert.Contains(t, f.logs.String(), "request failed")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, RouteHealth, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, RouteCreateCustomer, "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestMetricsAndAccessLog(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, RouteSummary, "")
	f.do(t, http.MethodGet, RouteFindCustomer, "")

	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.registry.HTTPRequests.WithLabelValues(RouteSummary, "2xx")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.registry.HTTPRequests.WithLabelValues(RouteFindCustomer, "4xx")))

	status, body := f.do(t, http.MethodGet, RouteMetrics, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "reactflow_http_requests_total")

	assert.Contains(t, f.logs.String(), "route=/sales/summary")
	assert.Contains(t, f.logs.String(), "status=400")
}

func TestRateLimit(t *testing.T) {
	clock := timer.NewVirtual(time.Unix(0, 0))
	limiter, err := bucket.NewWithConfig(bucket.Config{Rate: 1, Burst: 2, Clock: clock, InitialTokens: -1})
	require.NoError(t, err)

	s := memstore.New()
	svc := sales.NewService(
		memstore.NewCollection[sales.Customer](s, "customers"),
		memstore.NewCollection[sales.Order](s, "orders"),
	)
	server := httptest.NewServer(New(svc, WithRateLimit(limiter)).Handler())
	t.Cleanup(server.Close)
	f := &fixture{server: server, store: s}

	for i := 0; i < 2; i++ {
		status, _ := f.do(t, http.MethodGet, RouteSummary, "")
		assert.Equal(t, http.StatusOK, status)
	}

	req, err := http.NewRequest(http.MethodGet, server.URL+RouteSummary, nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, string(body))

	status, _ := f.do(t, http.MethodGet, RouteHealth, "")
	assert.Equal(t, http.StatusOK, status, "health is not limited")

	clock.Advance(time.Second)
	status, _ = f.do(t, http.MethodGet, RouteSummary, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{rferrors.NewValidationError("api", "id", "", "required"), http.StatusBadRequest},
		{rferrors.Persistence("save", errors.New("down")), http.StatusServiceUnavailable},
		{rferrors.Processing("map", 1, errors.New("bad")), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
