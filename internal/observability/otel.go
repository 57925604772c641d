// Package observability wires the OpenTelemetry trace and log SDKs to an OTLP
// HTTP collector.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ServiceName    = "event-tickets-reservations"
	ServiceVersion = "0.1.0"

	exportTimeout = 10 * time.Second
	maxQueueSize  = 2048
)

// Providers are the SDK providers installed as globals by Setup.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Logger *sdklog.LoggerProvider

	shutdownFuncs []func(context.Context) error
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range p.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	p.shutdownFuncs = nil
	return err
}

// LoggerProvider returns the OTLP log provider, or nil when logs are not
// exported. Unlike Logger it is safe to pass where a nil interface means off.
func (p *Providers) LoggerProvider() log.LoggerProvider {
	if p.Logger == nil {
		return nil
	}
	return p.Logger
}

// Setup installs global trace and log providers exporting to endpoint
// (host:port). With an empty endpoint it installs nothing and returns empty
// Providers, leaving the otel no-op globals in place.
func Setup(ctx context.Context, endpoint string, insecure bool) (*Providers, error) {
	p := &Providers{}
	if endpoint == "" {
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	logOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(endpoint)}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	p.Tracer = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter,
			sdktrace.WithExportTimeout(exportTimeout),
			sdktrace.WithMaxQueueSize(maxQueueSize),
		)),
	)
	otel.SetTracerProvider(p.Tracer)
	p.shutdownFuncs = append(p.shutdownFuncs, p.Tracer.Shutdown)

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return p, errors.Join(fmt.Errorf("otlp log exporter: %w", err), p.Shutdown(ctx))
	}
	p.Logger = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter,
			sdklog.WithExportTimeout(exportTimeout),
			sdklog.WithMaxQueueSize(maxQueueSize),
		)),
	)
	global.SetLoggerProvider(p.Logger)
	p.shutdownFuncs = append(p.shutdownFuncs, p.Logger.Shutdown)

	return p, nil
}
