package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled and in tests.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution)   {}
func (r *NoOpMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution)     {}
func (r *NoOpMetricRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}
func (r *NoOpMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution)   {}
func (r *NoOpMetricRecorder) RecordItemRead(ctx context.Context, stepName string, count int)      {}
func (r *NoOpMetricRecorder) RecordItemFilter(ctx context.Context, stepName string, count int)    {}
func (r *NoOpMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int)     {}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}
