package metrics

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/cropwx"

// OpenTelemetryTracer implements metrics.Tracer with an OpenTelemetry tracer.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer from provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "job "+execution.JobName, trace.WithAttributes(
		attribute.String("job.name", execution.JobName),
		attribute.String("job.execution_id", execution.ID),
	))
	logger.Debugf("Tracer: started span for Job '%s'", execution.JobName)
	return ctx, func() {
		if execution.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, strings.Join(execution.Failures, "; "))
		}
		span.SetAttributes(attribute.String("job.status", execution.Status.String()))
		span.End()
	}
}

func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "step "+execution.StepName, trace.WithAttributes(
		attribute.String("step.name", execution.StepName),
		attribute.String("step.execution_id", execution.ID),
	))
	return ctx, func() {
		if execution.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, strings.Join(execution.Failures, "; "))
		}
		span.SetAttributes(
			attribute.String("step.status", execution.Status.String()),
			attribute.Int("step.read_count", execution.ReadCount),
			attribute.Int("step.write_count", execution.WriteCount),
		)
		span.End()
	}
}

func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
	span.SetStatus(codes.Error, err.Error())
}

func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attrs
}

// NewTracerProvider builds the process tracer provider.
// When tracing is disabled a no-op provider is returned and shutdown does nothing.
func NewTracerProvider(ctx context.Context, cfg *config.TracingConfig) (trace.TracerProvider, func(context.Context) error, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch strings.ToLower(cfg.Protocol) {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource(cfg.ServiceName)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	logger.Infof("Tracing enabled: exporting spans over %s to %s", cfg.Protocol, cfg.Endpoint)
	return provider, provider.Shutdown, nil
}

func serviceResource(serviceName string) *resource.Resource {
	if serviceName == "" {
		serviceName = "cropwx"
	}
	return resource.NewWithAttributes("", attribute.String("service.name", serviceName))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
