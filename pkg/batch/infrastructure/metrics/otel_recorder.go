package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
)

// OTelMetricRecorder implements metrics.MetricRecorder with OpenTelemetry instruments
// exported periodically over OTLP.
type OTelMetricRecorder struct {
	provider *sdkmetric.MeterProvider

	jobDuration       metric.Float64Histogram
	stepDuration      metric.Float64Histogram
	operationDuration metric.Float64Histogram
	readCounter       metric.Int64Counter
	writeCounter      metric.Int64Counter
	filterCounter     metric.Int64Counter
}

// NewOTelMetricRecorder creates the meter provider and its instruments.
func NewOTelMetricRecorder(ctx context.Context, cfg *config.MetricsConfig, serviceName string) (*OTelMetricRecorder, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch strings.ToLower(cfg.OTLPProtocol) {
	case "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	interval := time.Duration(cfg.ExportIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(serviceResource(serviceName)),
	)
	return newOTelMetricRecorder(provider)
}

func newOTelMetricRecorder(provider *sdkmetric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelMetricRecorder{provider: provider}

	var err error
	if r.jobDuration, err = meter.Float64Histogram("cropwx.job.duration", metric.WithUnit("s"), metric.WithDescription("Duration of job executions.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("cropwx.step.duration", metric.WithUnit("s"), metric.WithDescription("Duration of step executions.")); err != nil {
		return nil, err
	}
	if r.operationDuration, err = meter.Float64Histogram("cropwx.operation.duration", metric.WithUnit("s"), metric.WithDescription("Duration of named operations.")); err != nil {
		return nil, err
	}
	if r.readCounter, err = meter.Int64Counter("cropwx.step.read", metric.WithDescription("Records parsed by step.")); err != nil {
		return nil, err
	}
	if r.writeCounter, err = meter.Int64Counter("cropwx.step.write", metric.WithDescription("Rows newly inserted by step.")); err != nil {
		return nil, err
	}
	if r.filterCounter, err = meter.Int64Counter("cropwx.step.filter", metric.WithDescription("Duplicate records discarded by step.")); err != nil {
		return nil, err
	}
	return r, nil
}

// Shutdown flushes pending measurements and stops the exporter.
func (r *OTelMetricRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

func (r *OTelMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OTelMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelMetricRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OTelMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), metric.WithAttributes(
		attribute.String("job_name", jobNameOf(execution)),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelMetricRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.readCounter.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.filterCounter.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.writeCounter.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("target", tags["target"]),
		attribute.String("status", tags["status"]),
	))
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)
