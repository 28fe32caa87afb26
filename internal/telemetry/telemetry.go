// Package telemetry bootstraps OpenTelemetry tracing and metrics with
// OTLP gRPC exporters. Disabled by default; when enabled, initialization
// failures degrade to no-op providers rather than failing startup.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Config holds telemetry settings.
type Config struct {
	// Enabled turns OTLP export on. Default: false
	Enabled bool

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string

	// ServiceName identifies this service in traces and metrics.
	ServiceName string

	// ServiceVersion is reported as a resource attribute.
	ServiceVersion string

	// Insecure disables TLS toward the collector.
	Insecure bool

	// SampleRate is the trace sampling ratio in [0, 1]. Default: 1.0
	SampleRate float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "resolvd"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint required when enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be in [0, 1], got %f", c.SampleRate)
	}
	return nil
}

// Telemetry manages the tracer and meter providers and their shutdown.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	degraded       atomic.Bool
}

// New initializes global OTel providers according to config. A disabled
// config returns a usable no-op instance. Exporter setup failures mark
// the instance degraded and leave the no-op globals in place.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Telemetry{}
	if !cfg.Enabled {
		return t, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		// Cumulative temporality for Prometheus-compatible backends.
		otlpmetricgrpc.WithTemporalitySelector(func(sdkmetric.InstrumentKind) metricdata.Temporality {
			return metricdata.CumulativeTemporality
		}),
	}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		t.degraded.Store(true)
		logger.Warn("trace exporter setup failed, tracing disabled", zap.Error(err))
	} else {
		sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))
		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler),
		)
		otel.SetTracerProvider(t.tracerProvider)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		t.degraded.Store(true)
		logger.Warn("metric exporter setup failed, metrics export disabled", zap.Error(err))
	} else {
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		)
		otel.SetMeterProvider(t.meterProvider)
	}

	return t, nil
}

// Degraded reports whether any exporter failed to initialize.
func (t *Telemetry) Degraded() bool {
	return t != nil && t.degraded.Load()
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
