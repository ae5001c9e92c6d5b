// Package metrics defines the metric and tracing contracts used across cropwx.
// Implementations live in pkg/batch/infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step and pipeline measurements.
type MetricRecorder interface {
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead counts records parsed from input files.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemFilter counts records discarded before loading (duplicate natural keys).
	RecordItemFilter(ctx context.Context, stepName string, count int)
	// RecordItemWrite counts rows newly inserted into a table.
	RecordItemWrite(ctx context.Context, stepName string, count int)

	// RecordDuration records the duration of a named operation.
	// Recognised tags are "status" and "target".
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
