package http

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/fyrsmithlabs/perceptd/internal/http"

// requestMetrics records OTEL instruments for every routed request. An
// instrument that fails to register stays nil and is skipped.
type requestMetrics struct {
	logger   *zap.Logger
	requests metric.Int64Counter
	duration metric.Float64Histogram
	uploads  metric.Int64Histogram
	inFlight metric.Int64UpDownCounter
}

func newRequestMetrics(meter metric.Meter, logger *zap.Logger) *requestMetrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &requestMetrics{logger: logger}

	var err error
	if m.requests, err = meter.Int64Counter("perceptd.http.requests",
		metric.WithDescription("HTTP requests by method, route and status class"),
		metric.WithUnit("{request}"),
	); err != nil {
		m.warn("requests", err)
	}
	if m.duration, err = meter.Float64Histogram("perceptd.http.request.duration",
		metric.WithDescription("HTTP request latency, analysis and transcription included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300),
	); err != nil {
		m.warn("duration", err)
	}
	if m.uploads, err = meter.Int64Histogram("perceptd.http.upload.size",
		metric.WithDescription("Request body size of analyze requests"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1<<10, 16<<10, 256<<10, 1<<20, 4<<20, 16<<20),
	); err != nil {
		m.warn("upload size", err)
	}
	if m.inFlight, err = meter.Int64UpDownCounter("perceptd.http.in_flight",
		metric.WithDescription("Requests currently being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		m.warn("in-flight", err)
	}
	return m
}

func (m *requestMetrics) warn(instrument string, err error) {
	m.logger.Warn("http metric instrument unavailable", zap.String("instrument", instrument), zap.Error(err))
}

// middleware records the instruments. Routes are echo patterns, so ids
// such as :id never become label values.
func (m *requestMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			route := routeLabel(c.Path())
			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("route", route),
				attribute.String("status_class", statusClass(status)),
			)

			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.duration != nil {
				m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.uploads != nil && isAnalyzeRoute(route) && c.Request().ContentLength > 0 {
				m.uploads.Record(ctx, c.Request().ContentLength, metric.WithAttributes(attribute.String("route", route)))
			}
			return err
		}
	}
}

// routeLabel maps unmatched requests to one label.
func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}

func isAnalyzeRoute(route string) bool {
	return route == "/api/v1/analyze" || route == "/api/v1/analyze/text"
}

// statusClass returns "2xx", "4xx" and so on.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
