package tempora

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "github.com/maroda/tempora"

// Tracer is the tracer used for every span the host creates
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// InitTracing picks an exporter by name and returns its shutdown func.
// "honeycomb" uses the Honeycomb distro, "otlp" the plain OTLP/HTTP exporter,
// anything else leaves the global no-op provider in place.
func InitTracing(kind string) (func(), error) {
	switch strings.ToLower(kind) {
	case "honeycomb", "hny":
		return InitOTelHNY()
	case "otlp", "grafana", "grf":
		tp, err := InitOTelGRF()
		if err != nil {
			return nil, err
		}
		return func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("Tracer shutdown failed", slog.Any("Error", err))
			}
		}, nil
	default:
		slog.Debug("Tracing disabled", slog.String("kind", kind))
		return func() {}, nil
	}
}

// InitOTelHNY uses the Honeycomb library to interface with OTel
func InitOTelHNY() (func(), error) {
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to configure OpenTelemetry: %w", err)
	}
	return func() { otelShutdown() }, nil
}

// InitOTelGRF exports over OTLP/HTTP with Baggage propagation,
// endpoint taken from the usual OTEL_EXPORTER_OTLP_* variables
func InitOTelGRF() (*sdktrace.TracerProvider, error) {
	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}
