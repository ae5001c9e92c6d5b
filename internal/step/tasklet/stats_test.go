package tasklet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/step/tasklet"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBuilder) Recompute(ctx context.Context, scope aggregate.Scope) (int64, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(int64), args.Error(1)
}

func TestBuildStatsTasklet(t *testing.T) {
	b := &mockBuilder{}
	b.On("Build", mock.Anything).Return(int64(7), nil)

	se := test.NewStepExecution("build-weather-stats")
	status, err := tasklet.NewBuildStatsTasklet(b).Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.Equal(t, 7, se.WriteCount)
	b.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestBuildStatsTasklet_NothingNew(t *testing.T) {
	b := &mockBuilder{}
	b.On("Build", mock.Anything).Return(int64(0), nil)

	status, err := tasklet.NewBuildStatsTasklet(b).Execute(context.Background(), test.NewStepExecution("build-weather-stats"))
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusNoOp, status)
}

func TestRecomputeTasklet_PassesScope(t *testing.T) {
	b := &mockBuilder{}
	scope := aggregate.Scope{StationID: "USC00110072", Year: 1990}
	b.On("Recompute", mock.Anything, scope).Return(int64(1), nil)

	tl := tasklet.NewRecomputeTasklet(b, scope)
	se := test.NewStepExecution("recompute-weather-stats")
	_, err := tl.Execute(context.Background(), se)
	require.NoError(t, err)
	ec, _ := tl.GetExecutionContext(context.Background())
	written, ok := ec.GetInt64(tasklet.ContextKeyStatsWritten)
	assert.True(t, ok)
	assert.Equal(t, int64(1), written)
	b.AssertExpectations(t)
}

func TestRecomputeTasklet_Error(t *testing.T) {
	b := &mockBuilder{}
	b.On("Recompute", mock.Anything, aggregate.Scope{}).Return(int64(0), errors.New("locked"))

	status, err := tasklet.NewRecomputeTasklet(b, aggregate.Scope{}).Execute(context.Background(), test.NewStepExecution("recompute-weather-stats"))
	require.EqualError(t, err, "locked")
	assert.Equal(t, model.ExitStatusFailed, status)
}
