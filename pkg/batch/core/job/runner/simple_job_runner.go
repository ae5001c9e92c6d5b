// Package runner launches jobs and reports their executions.
package runner

import (
	"context"
	"time"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// MetricsPusher forwards collected metrics once a job has finished.
type MetricsPusher interface {
	Push(ctx context.Context, jobName string) error
}

// SimpleJobRunner creates a JobExecution and runs a job to completion.
type SimpleJobRunner struct {
	pusher      MetricsPusher
	incrementer port.JobParametersIncrementer
}

// NewSimpleJobRunner creates a runner. pusher may be nil.
func NewSimpleJobRunner(pusher MetricsPusher) *SimpleJobRunner {
	return &SimpleJobRunner{pusher: pusher}
}

// WithIncrementer makes every Run derive its parameters through inc. A nil inc is ignored.
func (r *SimpleJobRunner) WithIncrementer(inc port.JobParametersIncrementer) *SimpleJobRunner {
	r.incrementer = inc
	return r
}

// Run executes job with params and returns the finished execution and the job error.
func (r *SimpleJobRunner) Run(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error) {
	if r.incrementer != nil {
		params = r.incrementer.GetNext(params)
	}
	jobExecution := model.NewJobExecution(job.JobName(), params)

	err := job.Run(ctx, jobExecution, params)
	if err != nil && !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsFailed(err)
	} else if err == nil && !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsCompleted()
	}
	if jobExecution.EndTime == nil {
		now := time.Now()
		jobExecution.EndTime = &now
	}

	if r.pusher != nil {
		// The run context may already be cancelled; pushing uses a short detached deadline.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if pushErr := r.pusher.Push(pushCtx, job.JobName()); pushErr != nil {
			logger.Warnf("JobRunner: failed to push metrics for job '%s': %v", job.JobName(), pushErr)
		}
	}
	return jobExecution, err
}
