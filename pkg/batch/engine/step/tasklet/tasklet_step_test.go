package tasklet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	steptasklet "github.com/tigerroll/cropwx/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

type stubTasklet struct {
	ec       model.ExecutionContext
	status   model.ExitStatus
	err      error
	closeErr error
	closed   bool
}

func (s *stubTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	s.ec.Put("rows", 7)
	s.ec.Put("scratch", true)
	se.WriteCount = 7
	return s.status, s.err
}

func (s *stubTasklet) Close(ctx context.Context) error {
	s.closed = true
	return s.closeErr
}

func (s *stubTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	s.ec = ec
	return nil
}

func (s *stubTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return s.ec, nil
}

type countingStepListener struct{ before, after int }

func (l *countingStepListener) BeforeStep(ctx context.Context, se *model.StepExecution) { l.before++ }
func (l *countingStepListener) AfterStep(ctx context.Context, se *model.StepExecution)  { l.after++ }

func newExecutions() (*model.JobExecution, *model.StepExecution) {
	je := test.NewJobExecution("testJob")
	return je, model.NewStepExecution(model.NewID(), je, "step")
}

func TestTaskletStep_PromotesListedKeys(t *testing.T) {
	tl := &stubTasklet{status: model.ExitStatusCompleted}
	listener := &countingStepListener{}
	step := steptasklet.NewTaskletStep("step", tl,
		steptasklet.WithListeners(listener),
		steptasklet.WithPromotedKeys("rows"))
	je, se := newExecutions()

	require.NoError(t, step.Execute(context.Background(), je, se))

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, 7, se.WriteCount)
	rows, ok := je.ExecutionContext.GetInt64("rows")
	assert.True(t, ok)
	assert.Equal(t, int64(7), rows)
	_, ok = je.ExecutionContext.Get("scratch")
	assert.False(t, ok, "only listed keys reach the job context")
	assert.True(t, tl.closed)
	assert.Equal(t, 1, listener.before)
	assert.Equal(t, 1, listener.after)
	assert.Equal(t, "step", je.CurrentStepName)
}

func TestTaskletStep_NoOpExitStatus(t *testing.T) {
	step := steptasklet.NewTaskletStep("step", &stubTasklet{status: model.ExitStatusNoOp})
	je, se := newExecutions()
	require.NoError(t, step.Execute(context.Background(), je, se))
	assert.Equal(t, model.ExitStatusNoOp, se.ExitStatus)
}

func TestTaskletStep_FailureIsNotPromoted(t *testing.T) {
	tl := &stubTasklet{err: errors.New("boom")}
	step := steptasklet.NewTaskletStep("step", tl, steptasklet.WithPromotedKeys("rows"))
	je, se := newExecutions()

	err := step.Execute(context.Background(), je, se)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Equal(t, model.FailureList{"boom"}, se.Failures)
	_, ok := je.ExecutionContext.Get("rows")
	assert.False(t, ok)
	assert.True(t, tl.closed, "the tasklet is closed on failure too")
}

func TestTaskletStep_CloseErrorFailsStep(t *testing.T) {
	step := steptasklet.NewTaskletStep("step", &stubTasklet{status: model.ExitStatusCompleted, closeErr: errors.New("flush failed")})
	je, se := newExecutions()
	assert.EqualError(t, step.Execute(context.Background(), je, se), "flush failed")
	assert.Equal(t, model.ExitStatusFailed, se.ExitStatus)
}
