package test

import (
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// NewJobExecution returns a started JobExecution named jobName.
func NewJobExecution(jobName string) *model.JobExecution {
	je := model.NewJobExecution(jobName, model.NewJobParameters())
	je.MarkAsStarted()
	return je
}

// NewStepExecution returns a started StepExecution attached to a new job execution.
func NewStepExecution(stepName string) *model.StepExecution {
	se := model.NewStepExecution(model.NewID(), NewJobExecution("testJob"), stepName)
	se.MarkAsStarted()
	return se
}
