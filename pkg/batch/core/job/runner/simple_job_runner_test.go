package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/core/job/runner"
	"github.com/tigerroll/cropwx/pkg/batch/core/support/incrementer"
)

type fakeJob struct {
	err    error
	params model.JobParameters
}

func (j *fakeJob) JobName() string { return "fakeJob" }

func (j *fakeJob) Run(ctx context.Context, je *model.JobExecution, params model.JobParameters) error {
	j.params = params
	return j.err
}

type recordingPusher struct{ jobs []string }

func (p *recordingPusher) Push(ctx context.Context, jobName string) error {
	p.jobs = append(p.jobs, jobName)
	return nil
}

func TestSimpleJobRunner_Completes(t *testing.T) {
	pusher := &recordingPusher{}
	je, err := runner.NewSimpleJobRunner(pusher).Run(context.Background(), &fakeJob{}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, []string{"fakeJob"}, pusher.jobs)
}

func TestSimpleJobRunner_MarksFailure(t *testing.T) {
	boom := errors.New("boom")
	je, err := runner.NewSimpleJobRunner(nil).Run(context.Background(), &fakeJob{err: boom}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}

func TestSimpleJobRunner_AppliesIncrementer(t *testing.T) {
	j := &fakeJob{}
	r := runner.NewSimpleJobRunner(nil).WithIncrementer(incrementer.NewTimestampIncrementer(""))
	je, err := r.Run(context.Background(), j, model.NewJobParameters())
	require.NoError(t, err)
	assert.Contains(t, j.params, incrementer.DefaultTimestampKey)
	assert.Contains(t, je.Parameters, incrementer.DefaultTimestampKey)
}
