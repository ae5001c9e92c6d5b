package logging

import (
	"context"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

type LoggingJobListener struct{}

func NewLoggingJobListener() port.JobExecutionListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("Job '%s' starting (ID: %s, Params: %s)", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if jobExecution.Status == model.BatchStatusFailed {
		logger.Errorf("Job '%s' finished with status %s after %s: %v",
			jobExecution.JobName, jobExecution.Status, jobExecution.Duration(), jobExecution.Failures)
		return
	}
	logger.Infof("Job '%s' finished with status %s after %s", jobExecution.JobName, jobExecution.Status, jobExecution.Duration())
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct{}

func NewLoggingStepListener() port.StepExecutionListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Debugf("Step '%s' starting (ID: %s)", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("Step '%s' finished: Status: %s, ExitStatus: %s, Duration: %s",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus, stepExecution.Duration())
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)
