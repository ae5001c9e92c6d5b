// Package tasklet runs a single port.Tasklet as a step.
package tasklet

import (
	"context"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	exception "github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// TaskletStep is an implementation of port.Step for Tasklet-oriented processing.
type TaskletStep struct {
	id                     string
	tasklet                port.Tasklet
	stepExecutionListeners []port.StepExecutionListener
	promotedKeys           []string
	tracer                 metrics.Tracer
}

// Option customizes a TaskletStep.
type Option func(*TaskletStep)

// WithListeners registers step listeners, notified in order.
func WithListeners(listeners ...port.StepExecutionListener) Option {
	return func(s *TaskletStep) {
		s.stepExecutionListeners = append(s.stepExecutionListeners, listeners...)
	}
}

// WithTracer sets the tracer used for the step span.
func WithTracer(tracer metrics.Tracer) Option {
	return func(s *TaskletStep) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithPromotedKeys copies the listed step context keys into the job context on success.
func WithPromotedKeys(keys ...string) Option {
	return func(s *TaskletStep) {
		s.promotedKeys = append(s.promotedKeys, keys...)
	}
}

// NewTaskletStep creates a new TaskletStep instance.
func NewTaskletStep(id string, tasklet port.Tasklet, opts ...Option) *TaskletStep {
	s := &TaskletStep{
		id:      id,
		tasklet: tasklet,
		tracer:  metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.id
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// Execute runs the Tasklet and records the outcome on stepExecution.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
	ctx = port.GetContextWithStepExecution(ctx, stepExecution)

	stepExecution.MarkAsStarted()
	jobExecution.CurrentStepName = s.id

	if err := s.tasklet.SetExecutionContext(ctx, stepExecution.ExecutionContext); err != nil {
		err = exception.NewBatchError(s.id, "failed to set tasklet execution context", err)
		stepExecution.MarkAsFailed(err)
		s.notifyAfterStep(ctx, stepExecution)
		return err
	}

	s.notifyBeforeStep(ctx, stepExecution)

	var exitStatus model.ExitStatus
	exitStatus, err = s.tasklet.Execute(ctx, stepExecution)

	if taskletEC, getErr := s.tasklet.GetExecutionContext(ctx); getErr == nil {
		stepExecution.ExecutionContext = taskletEC
	} else {
		logger.Warnf("TaskletStep '%s': failed to retrieve ExecutionContext from tasklet: %v", s.id, getErr)
	}

	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': failed to close tasklet: %v", s.id, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	switch {
	case err != nil:
		s.tracer.RecordError(ctx, s.id, err)
		stepExecution.MarkAsFailed(err)
	case ctx.Err() != nil:
		err = ctx.Err()
		stepExecution.MarkAsFailed(err)
	default:
		stepExecution.MarkAsCompleted(exitStatus)
		s.promote(stepExecution, jobExecution)
	}

	s.notifyAfterStep(ctx, stepExecution)
	return err
}

func (s *TaskletStep) promote(stepExecution *model.StepExecution, jobExecution *model.JobExecution) {
	for _, key := range s.promotedKeys {
		if v, ok := stepExecution.ExecutionContext.Get(key); ok {
			jobExecution.ExecutionContext.Put(key, v)
		}
	}
}

// Verify that TaskletStep implements the port.Step interface.
var _ port.Step = (*TaskletStep)(nil)
