// Package job provides the sequential job implementation.
package job

import (
	"context"
	"errors"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	exception "github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// SimpleJob runs its steps one after another and stops at the first failed step.
type SimpleJob struct {
	name         string
	steps        []port.Step
	jobListeners []port.JobExecutionListener
	tracer       metrics.Tracer
}

// Verify that SimpleJob implements the port.Job interface.
var _ port.Job = (*SimpleJob)(nil)

// NewSimpleJob creates a new SimpleJob.
func NewSimpleJob(name string, steps []port.Step, jobListeners []port.JobExecutionListener, tracer metrics.Tracer) *SimpleJob {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJob{
		name:         name,
		steps:        steps,
		jobListeners: jobListeners,
		tracer:       tracer,
	}
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// Steps returns the steps in execution order.
func (j *SimpleJob) Steps() []port.Step {
	return j.steps
}

// Run executes every step in order. A cancelled context stops the job before the next step.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution, _ model.JobParameters) error {
	ctx, endSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer endSpan()

	jobExecution.MarkAsStarted()
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}

	err := j.runSteps(ctx, jobExecution)
	switch {
	case err == nil:
		jobExecution.MarkAsCompleted()
	case errors.Is(err, context.Canceled):
		logger.Warnf("Job '%s' interrupted: %v", j.name, err)
		jobExecution.AddFailureException(err)
		jobExecution.MarkAsStopped()
	default:
		jobExecution.MarkAsFailed(err)
	}

	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
	return err
}

func (j *SimpleJob) runSteps(ctx context.Context, jobExecution *model.JobExecution) error {
	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, step.StepName())
		if err := step.Execute(ctx, jobExecution, stepExecution); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if exception.IsBatchError(err) {
				return err
			}
			return exception.NewBatchError(j.name, "step '"+step.StepName()+"' failed", err)
		}
	}
	return nil
}
