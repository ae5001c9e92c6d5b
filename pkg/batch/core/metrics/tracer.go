package metrics

import (
	"context"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// Tracer opens spans around jobs and steps.
type Tracer interface {
	// StartJobSpan starts a span for a job. Call the returned function to end it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a span for a step. Call the returned function to end it.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// StartSpan starts a span for an arbitrary operation.
	StartSpan(ctx context.Context, name string) (context.Context, func())
	// RecordError marks the span in ctx as failed.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds an event to the span in ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
