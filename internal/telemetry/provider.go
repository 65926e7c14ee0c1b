package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config selects whether spans and metrics are recorded.
type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	TraceFile   string // stdout exporter target; stderr when empty
}

// Provider bundles the tracer and meter providers with a shutdown hook.
type Provider struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	reader   *sdkmetric.ManualReader
	shutdown []func(context.Context) error
	log      *zap.Logger
}

// Setup builds the providers and installs them as the otel globals. When
// telemetry is disabled both providers are no-ops.
func Setup(ctx context.Context, cfg Config, log *zap.Logger) (*Provider, error) {
	p := &Provider{log: log}
	if !cfg.Enabled {
		p.TracerProvider = tracenoop.NewTracerProvider()
		p.MeterProvider = metricnoop.NewMeterProvider()
		return p, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = "coursetrack"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(cfg.Version),
		attribute.String("service.component", "cli"),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", zap.Error(err))
	}

	out, closeOut, err := traceWriter(cfg.TraceFile)
	if err != nil {
		return nil, fmt.Errorf("opening trace output: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		closeOut()
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)

	p.reader = sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(p.reader),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.TracerProvider = tp
	p.MeterProvider = mp
	p.shutdown = append(p.shutdown, p.logTotals, tp.Shutdown, mp.Shutdown, func(context.Context) error {
		closeOut()
		return nil
	})
	return p, nil
}

// Tracer returns a named tracer from the provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.TracerProvider.Tracer(meterName)
}

// Shutdown flushes exporters and logs the final counter values.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) logTotals(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			p.log.Debug("metric total", zap.String("metric", m.Name), zap.Int64("value", total))
		}
	}
	return nil
}

func traceWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return fd, func() { _ = fd.Close() }, nil
}
