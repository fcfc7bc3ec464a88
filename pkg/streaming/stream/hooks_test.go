package stream

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/reactflow/internal/testutil"
	"github.com/vnykmshr/reactflow/pkg/metrics"
)

func TestLog(t *testing.T) {
	buf := testutil.NewLogBuffer()
	logger := slog.New(slog.NewTextHandler(buf, nil))

	collect(t, Of(1, 2).Log(logger, "numbers"))

	lines := buf.Lines()
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "onSubscribe")
	assert.Contains(t, lines[1], "onNext")
	assert.Contains(t, lines[1], "value=1")
	assert.Contains(t, lines[3], "onComplete")
	for _, l := range lines {
		assert.Contains(t, l, "stream=numbers")
	}
}

func TestLog_Error(t *testing.T) {
	buf := testutil.NewLogBuffer()
	logger := slog.New(slog.NewTextHandler(buf, nil))

	_, _, err := FailSingle[string](errBoom).Log(logger, "lookup").Block(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(buf.String(), "level=ERROR"))
	assert.Contains(t, buf.String(), "error=boom")
}

func TestMetered(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())

	s := Of(1, 2, 3).Metered(registry, "numbers")
	collect(t, s)
	collect(t, s)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(registry.StreamSubscriptions.WithLabelValues("numbers")))
	assert.Equal(t, 6.0, promtestutil.ToFloat64(registry.StreamSignals.WithLabelValues("numbers", "value")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(registry.StreamSignals.WithLabelValues("numbers", "complete")))

	_, _, err := FailSingle[int](errBoom).Metered(registry, "single").Block(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(registry.StreamSignals.WithLabelValues("single", "error")))
}

func TestMetered_NilRegistry(t *testing.T) {
	assert.Equal(t, []int{1}, collect(t, Of(1).Metered(nil, "numbers")))
}
