package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "resolvd.http"

// HTTPMetrics records request counts, latency, and in-flight requests
// for the API surface.
type HTTPMetrics struct {
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics creates instruments on the global meter. Instrument
// creation failures are logged and leave that metric disabled.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &HTTPMetrics{logger: logger}
	meter := otel.Meter(instrumentationName)

	var err error
	m.requestsTotal, err = meter.Int64Counter(
		"resolvd.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method, endpoint, and status code"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = meter.Float64Histogram(
		"resolvd.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, endpoint, and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"resolvd.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create active requests gauge", zap.Error(err))
	}

	return m
}

// Middleware returns an Echo middleware recording the metrics.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
			}

			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", c.Path()),
				attribute.Int("status", c.Response().Status),
			)
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, -1)
			}

			return err
		}
	}
}
