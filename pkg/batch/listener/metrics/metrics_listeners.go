// Package metrics forwards job and step executions to the configured MetricRecorder.
package metrics

import (
	"context"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/core/metrics"
)

// Listener records job and step lifecycles. One value serves both listener groups.
type Listener struct {
	recorder metrics.MetricRecorder
}

// NewListener creates a Listener. A nil recorder records nothing.
func NewListener(recorder metrics.MetricRecorder) *Listener {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Listener{recorder: recorder}
}

func (l *Listener) BeforeJob(ctx context.Context, je *model.JobExecution) {
	l.recorder.RecordJobStart(ctx, je)
}

func (l *Listener) AfterJob(ctx context.Context, je *model.JobExecution) {
	l.recorder.RecordJobEnd(ctx, je)
}

func (l *Listener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	l.recorder.RecordStepStart(ctx, se)
}

// AfterStep records the record counters of ingest and export steps. Steps that
// touched no records (schema creation, empty inputs) only record their timing.
func (l *Listener) AfterStep(ctx context.Context, se *model.StepExecution) {
	ctx = port.GetContextWithStepExecution(ctx, se)
	if se.ReadCount > 0 {
		l.recorder.RecordItemRead(ctx, se.StepName, se.ReadCount)
	}
	if se.FilterCount > 0 {
		l.recorder.RecordItemFilter(ctx, se.StepName, se.FilterCount)
	}
	if se.WriteCount > 0 {
		l.recorder.RecordItemWrite(ctx, se.StepName, se.WriteCount)
	}
	l.recorder.RecordStepEnd(ctx, se)
}

var (
	_ port.JobExecutionListener  = (*Listener)(nil)
	_ port.StepExecutionListener = (*Listener)(nil)
)
