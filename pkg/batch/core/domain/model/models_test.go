package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
)

func TestJobExecution_TransitionTo(t *testing.T) {
	je := model.NewJobExecution("testJob", nil)
	assert.Equal(t, model.BatchStatusStarting, je.Status)
	assert.NotNil(t, je.Parameters)

	assert.NoError(t, je.TransitionTo(model.BatchStatusStarted))
	assert.NoError(t, je.TransitionTo(model.BatchStatusCompleted))

	// Finished executions never move again.
	err := je.TransitionTo(model.BatchStatusStarted)
	assert.Error(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)

	je = model.NewJobExecution("testJob", nil)
	assert.Error(t, je.TransitionTo(model.BatchStatusCompleted), "STARTING -> COMPLETED skips STARTED")
}

func TestJobExecution_MarkAsFailed(t *testing.T) {
	je := model.NewJobExecution("testJob", nil)
	je.MarkAsStarted()

	cause := exception.NewBatchError("loader", "merge failed", errors.New("deadlock"))
	je.MarkAsFailed(cause)
	je.AddFailureException(cause)

	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.NotNil(t, je.EndTime)
	assert.Equal(t, model.FailureList{"merge failed"}, je.Failures, "duplicate failures are recorded once")
}

func TestStepExecution_MarkAsCompleted(t *testing.T) {
	je := model.NewJobExecution("testJob", nil)
	se := model.NewStepExecution(model.NewID(), je, "testStep")
	assert.Same(t, se, je.StepExecutions[0])

	se.MarkAsStarted()
	se.MarkAsCompleted(model.ExitStatusUnknown)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)

	se = model.NewStepExecution(model.NewID(), je, "noop")
	se.MarkAsStarted()
	se.MarkAsCompleted(model.ExitStatusNoOp)
	assert.Equal(t, model.ExitStatusNoOp, se.ExitStatus)
	assert.True(t, se.Status.IsFinished())
	assert.GreaterOrEqual(t, se.Duration().Nanoseconds(), int64(0))
}

func TestExecutionContext_GetInt64(t *testing.T) {
	ec := model.NewExecutionContext()
	ec.Put("int", 3)
	ec.Put("int64", int64(4))
	ec.Put("float", float64(5))
	ec.Put("string", "6")

	for key, want := range map[string]int64{"int": 3, "int64": 4, "float": 5} {
		got, ok := ec.GetInt64(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := ec.GetInt64("string")
	assert.False(t, ok)
	_, ok = ec.GetInt64("missing")
	assert.False(t, ok)

	cp := ec.Copy()
	cp.Put("int", 30)
	v, _ := ec.GetInt64("int")
	assert.Equal(t, int64(3), v, "Copy is independent of the original")
}

func TestJobParameters_String(t *testing.T) {
	params := model.NewJobParameters()
	params.Put("year", 1985)
	params.Put("station", "USC00110072")
	assert.Equal(t, "{station=USC00110072, year=1985}", params.String())

	year, ok := params.GetInt("year")
	assert.True(t, ok)
	assert.Equal(t, 1985, year)
	_, ok = params.GetString("year")
	assert.False(t, ok)
}
