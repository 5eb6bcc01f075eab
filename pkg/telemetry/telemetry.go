package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// провайдер трейсов сервиса. По умолчанию noop, чтобы горячий путь
// не зависел от доступности коллектора
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer("noop-linkrocket")

// InitTracing - инициализация трейсинга
func InitTracing(serviceName string) (*sdktrace.TracerProvider, error) {

	ctx := context.Background()

	endpoint, ok := os.LookupEnv("OTEL_EXPORTER_ENDPOINT")
	if !ok {
		endpoint = "jaeger:4317"
	}

	// экспорт трейсов в jaeger через otlp/grpc
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("не удалось создать экспортер трейсов: %w", err)
	}

	// создаем провайдер трейсов
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		)),
	)

	// устанавливаем глобальный провайдер
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	Tracer = tp.Tracer(serviceName)

	log.Printf("Трейсинг инициализирован (%s).", endpoint)
	return tp, nil
}
