// Package port defines the contracts between the job runner and the
// components it executes.
package port

import (
	"context"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// Job is an ordered unit of work made of steps.
type Job interface {
	// Run executes the job, recording progress on jobExecution.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	// JobName returns the name of the job.
	JobName() string
}

// JobParametersIncrementer derives the parameters of the next launch of a job.
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}

// Step is one stage of a job.
type Step interface {
	// Execute runs the step, recording progress on stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the name of the step.
	StepName() string
}

// Tasklet is the body of a single-operation step.
type Tasklet interface {
	// Execute performs the work and reports how it ended.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources held by the tasklet.
	Close(ctx context.Context) error
	// SetExecutionContext hands the step's execution context to the tasklet.
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	// GetExecutionContext returns the tasklet's execution context.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener is notified around every step execution.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is notified around every job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

// StepExecutionKey is the context key carrying the running *model.StepExecution.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution returns ctx carrying se.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext returns the running step execution, or nil.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	se, _ := ctx.Value(StepExecutionKey).(*model.StepExecution)
	return se
}

// Fx value group tags collecting listeners.
const (
	JobListenerGroupTag  = `group:"job_listeners"`
	StepListenerGroupTag = `group:"step_listeners"`
)

// ItemReader reads items one at a time until it returns io.EOF.
type ItemReader[T any] interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (T, error)
	Close(ctx context.Context) error
}

// ItemWriter receives items in chunks. Close flushes whatever is still buffered.
type ItemWriter[T any] interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, items []T) error
	Close(ctx context.Context) error
}
