package job_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	batchjob "github.com/tigerroll/cropwx/pkg/batch/core/job"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
)

type fakeStep struct {
	name string
	err  error
	ran  *[]string
}

func (s *fakeStep) StepName() string { return s.name }

func (s *fakeStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	*s.ran = append(*s.ran, s.name)
	se.MarkAsStarted()
	if s.err != nil {
		se.MarkAsFailed(s.err)
		return s.err
	}
	se.MarkAsCompleted(model.ExitStatusCompleted)
	return nil
}

type recordingJobListener struct{ events []string }

func (l *recordingJobListener) BeforeJob(ctx context.Context, je *model.JobExecution) {
	l.events = append(l.events, "before:"+je.Status.String())
}

func (l *recordingJobListener) AfterJob(ctx context.Context, je *model.JobExecution) {
	l.events = append(l.events, "after:"+je.Status.String())
}

func TestSimpleJob_RunsStepsInOrder(t *testing.T) {
	var ran []string
	listener := &recordingJobListener{}
	j := batchjob.NewSimpleJob("testJob", []port.Step{
		&fakeStep{name: "a", ran: &ran},
		&fakeStep{name: "b", ran: &ran},
	}, []port.JobExecutionListener{listener}, nil)
	je := model.NewJobExecution(j.JobName(), nil)

	require.NoError(t, j.Run(context.Background(), je, je.Parameters))

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Len(t, je.StepExecutions, 2)
	assert.Equal(t, []string{"before:STARTED", "after:COMPLETED"}, listener.events)
}

func TestSimpleJob_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	j := batchjob.NewSimpleJob("testJob", []port.Step{
		&fakeStep{name: "a", ran: &ran},
		&fakeStep{name: "b", ran: &ran, err: errors.New("disk full")},
		&fakeStep{name: "c", ran: &ran},
	}, nil, nil)
	je := model.NewJobExecution(j.JobName(), nil)

	err := j.Run(context.Background(), je, nil)
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err), "plain step errors are wrapped")
	assert.Contains(t, err.Error(), "step 'b' failed")
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}

func TestSimpleJob_KeepsBatchErrors(t *testing.T) {
	var ran []string
	cause := exception.NewParseError("A.txt", 3, "expected 4 fields, got 3", nil)
	j := batchjob.NewSimpleJob("testJob", []port.Step{&fakeStep{name: "a", ran: &ran, err: cause}}, nil, nil)

	err := j.Run(context.Background(), model.NewJobExecution(j.JobName(), nil), nil)
	assert.True(t, exception.IsParseError(err))
}

func TestSimpleJob_CancelledContextStops(t *testing.T) {
	var ran []string
	j := batchjob.NewSimpleJob("testJob", []port.Step{&fakeStep{name: "a", ran: &ran}}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	je := model.NewJobExecution(j.JobName(), nil)

	err := j.Run(ctx, je, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
	assert.Equal(t, model.BatchStatusStopped, je.Status)
}
