package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type metrics struct {
	httpRequestsTotal    metric.Int64Counter
	httpRequestDuration  metric.Float64Histogram
	statementsTotal      metric.Int64Counter
	statementDuration    metric.Float64Histogram
	connectionOpsTotal   metric.Int64Counter
	connectionOpDuration metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	m           metrics
)

func buildMeterProvider(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled || !cfg.MetricsEnabled {
		return sdkmetric.NewMeterProvider(), nil
	}

	exporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter),
		),
	), nil
}

func initInstruments() {
	metricsOnce.Do(func() {
		meter := otel.Meter("dbbridge/server")
		m.httpRequestsTotal, _ = meter.Int64Counter("dbbridge.http.server.requests_total")
		m.httpRequestDuration, _ = meter.Float64Histogram("dbbridge.http.server.request_duration_ms")
		m.statementsTotal, _ = meter.Int64Counter("dbbridge.statement.executions_total")
		m.statementDuration, _ = meter.Float64Histogram("dbbridge.statement.execution_duration_ms")
		m.connectionOpsTotal, _ = meter.Int64Counter("dbbridge.connection.operations_total")
		m.connectionOpDuration, _ = meter.Float64Histogram("dbbridge.connection.operation_duration_ms")
	})
}

func RecordHTTPRequest(ctx context.Context, method, route string, status int, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationMS, attrs)
}

func RecordStatementExecution(ctx context.Context, connectionName, backendKind string, success bool, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrConnectionName, connectionName),
		attribute.String(AttrBackendKind, backendKind),
		attribute.Bool("success", success),
	)
	m.statementsTotal.Add(ctx, 1, attrs)
	m.statementDuration.Record(ctx, durationMS, attrs)
}

func RecordConnectionOperation(ctx context.Context, connectionName, backendKind, operation string, success bool, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrConnectionName, connectionName),
		attribute.String(AttrBackendKind, backendKind),
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	m.connectionOpsTotal.Add(ctx, 1, attrs)
	m.connectionOpDuration.Record(ctx, durationMS, attrs)
}
