package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRequestMetrics_Middleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := newRequestMetrics(mp.Meter(meterName), nil)

	e := echo.New()
	e.Use(m.middleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/analyze/text", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad")
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/analyze/text", strings.NewReader(`{"text":"hi"}`)),
		httptest.NewRequest(http.MethodGet, "/nope", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := collect(t, reader)

	requests, ok := got["perceptd.http.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	classes := map[string]int64{}
	var total int64
	for _, dp := range requests.DataPoints {
		total += dp.Value
		class, _ := dp.Attributes.Value("status_class")
		classes[class.AsString()] += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), classes["2xx"])
	assert.Equal(t, int64(2), classes["4xx"])

	duration, ok := got["perceptd.http.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range duration.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	uploads, ok := got["perceptd.http.upload.size"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, uploads.DataPoints, 1)
	assert.Equal(t, uint64(1), uploads.DataPoints[0].Count)

	inFlight, ok := got["perceptd.http.in_flight"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range inFlight.DataPoints {
		assert.Zero(t, dp.Value)
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "4xx", statusClass(413))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(0))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unmatched", routeLabel(""))
	assert.Equal(t, "/api/v1/memory/long-term/:id", routeLabel("/api/v1/memory/long-term/:id"))
	assert.True(t, isAnalyzeRoute("/api/v1/analyze"))
	assert.False(t, isAnalyzeRoute("/api/v1/context"))
}
