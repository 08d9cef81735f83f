package telemetry

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// DefaultEndpoint — OTLP/HTTP коллектор по умолчанию.
const DefaultEndpoint = "localhost:4318"

// Options — параметры трейсинга.
type Options struct {
	ServiceName string
	Version     string  // необязательно; попадает в service.version
	Endpoint    string  // host:port коллектора; пусто — DefaultEndpoint
	SampleRatio float64 // доля корневых трейсов, ограничивается [0..1]
}

// SetupTracing — OTLP/HTTP экспорт, семплинг и глобальные пропагаторы.
// Возвращает Shutdown провайдера для graceful stop.
func SetupTracing(ctx context.Context, opts Options) (func(context.Context) error, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(newSampler(opts.SampleRatio)),
		sdktrace.WithResource(newResource(opts)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)
	return tp.Shutdown, nil
}

// newSampler — решение родителя соблюдается; корневые спаны по доле.
func newSampler(ratio float64) sdktrace.Sampler {
	switch r := clampRatio(ratio); r {
	case 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r))
	}
}

func newResource(opts Options) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		attribute.String("telemetry.sdk", "opentelemetry"),
	}
	if opts.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(opts.Version))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func clampRatio(r float64) float64 {
	switch {
	case math.IsNaN(r), r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
