// Package tracing sets up OpenTelemetry for the service.
//
// Trace context (W3C traceparent and baggage) is always propagated so the
// service joins traces started by its callers and continues them to the LLM
// upstream. Spans are only exported when an OTLP endpoint is configured.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// exporterTimeout bounds creating the exporter at startup.
const exporterTimeout = 10 * time.Second

// Config describes where spans go.
type Config struct {
	// Endpoint is the OTLP/gRPC collector, either host:port (plaintext) or a
	// URL whose scheme picks TLS. Empty disables export.
	Endpoint       string
	ServiceName    string
	ServiceVersion string
}

// Propagator is the composite propagator used for inbound and outbound HTTP.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// Init installs the global propagator and, when cfg.Endpoint is set, a global
// tracer provider exporting over OTLP/gRPC. It returns nil when export is
// disabled. The caller owns the provider and must Shutdown it to flush.
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	otel.SetTextMapPropagator(Propagator())

	if cfg.Endpoint == "" {
		logger.Info("span export disabled, OTEL_EXPORTER_OTLP_ENDPOINT not set")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, endpointOptions(cfg.Endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("tracing: creating OTLP exporter: %w", err)
	}

	tp, err := NewProvider(ctx, cfg, sdktrace.WithBatcher(exporter,
		sdktrace.WithBatchTimeout(5*time.Second),
		sdktrace.WithMaxExportBatchSize(512),
	))
	if err != nil {
		_ = exporter.Shutdown(context.Background())
		return nil, err
	}

	otel.SetTracerProvider(tp)
	logger.Info("tracing initialized", slog.String("endpoint", cfg.Endpoint))
	return tp, nil
}

// NewProvider builds a tracer provider carrying the service resource.
// Parent-based sampling keeps the caller's sampling decision.
func NewProvider(ctx context.Context, cfg Config, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: creating resource: %w", err)
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}, opts...)

	return sdktrace.NewTracerProvider(opts...), nil
}

func endpointOptions(endpoint string) []otlptracegrpc.Option {
	if strings.Contains(endpoint, "://") {
		// The URL scheme decides TLS: http is plaintext, https is not.
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(endpoint)}
	}
	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	}
}
