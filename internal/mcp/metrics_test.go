package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := &Metrics{meter: mp.Meter(instrumentationName), logger: zap.NewNop()}
	m.init()
	return m, reader
}

func sumOf(t *testing.T, reader *metric.ManualReader, name string) (int64, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func TestMetrics_RecordInvocation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInvocation(ctx, "analyze_utterance", 100*time.Millisecond, nil)
	m.RecordInvocation(ctx, "analyze_utterance", 50*time.Millisecond, perception.ErrInvalidInput)

	invocations, ok := sumOf(t, reader, "perceptd.mcp.tool.invocations_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), invocations)

	errs, ok := sumOf(t, reader, "perceptd.mcp.tool.errors_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), errs)
}

func TestMetrics_TrackBalancesActive(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	done := m.track(ctx, "recall_memory")
	still := m.track(ctx, "recall_memory")
	done(nil)

	active, ok := sumOf(t, reader, "perceptd.mcp.tool.active_requests")
	require.True(t, ok)
	assert.Equal(t, int64(1), active)

	still(errors.New("boom"))
	active, _ = sumOf(t, reader, "perceptd.mcp.tool.active_requests")
	assert.Zero(t, active)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{fmt.Errorf("wrap: %w", perception.ErrInvalidInput), "validation_error"},
		{memory.ErrInvalidUserID, "validation_error"},
		{memory.ErrRecordNotFound, "not_found"},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("search: %w", memory.ErrEmbeddingFailed), "storage_error"},
		{errors.New("something went wrong"), "internal_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, categorizeError(tt.err), "%v", tt.err)
	}
}
