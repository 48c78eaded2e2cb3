package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	passCounter   otelmetric.Int64Counter
	passDuration  otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	passCounter, _ := meter.Int64Counter(
		"dispatch.passes",
		otelmetric.WithDescription("Number of dispatch passes processed"),
	)

	passDuration, _ := meter.Float64Histogram(
		"dispatch.pass.duration",
		otelmetric.WithDescription("Dispatch pass duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		passCounter:   passCounter,
		passDuration:  passDuration,
	}
}

func (o *Observability) RecordPass(ctx context.Context, result string) {
	if o.passCounter != nil {
		o.passCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("result", result),
		))
	}
}

func (o *Observability) RecordPassDuration(ctx context.Context, duration time.Duration, result string) {
	if o.passDuration != nil {
		o.passDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("result", result),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
