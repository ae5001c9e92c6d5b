package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	"github.com/tigerroll/cropwx/pkg/batch/listener/metrics"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

type countingRecorder struct {
	coremetrics.NoOpMetricRecorder
	calls []string
}

func (r *countingRecorder) RecordStepEnd(ctx context.Context, se *model.StepExecution) {
	r.calls = append(r.calls, "end")
}

func (r *countingRecorder) RecordItemRead(ctx context.Context, step string, n int) {
	r.calls = append(r.calls, "read")
}

func (r *countingRecorder) RecordItemFilter(ctx context.Context, step string, n int) {
	r.calls = append(r.calls, "filter")
}

func (r *countingRecorder) RecordItemWrite(ctx context.Context, step string, n int) {
	r.calls = append(r.calls, "write")
}

func TestListener_AfterStepSkipsZeroCounters(t *testing.T) {
	rec := &countingRecorder{}
	l := metrics.NewListener(rec)

	se := test.NewStepExecution("ingest-weather")
	se.ReadCount, se.FilterCount, se.WriteCount = 10, 0, 9
	l.AfterStep(context.Background(), se)
	assert.Equal(t, []string{"read", "write", "end"}, rec.calls)

	rec.calls = nil
	l.AfterStep(context.Background(), test.NewStepExecution("ensure-schema"))
	assert.Equal(t, []string{"end"}, rec.calls)
}

func TestNewListener_NilRecorder(t *testing.T) {
	l := metrics.NewListener(nil)
	assert.NotPanics(t, func() {
		l.BeforeJob(context.Background(), test.NewJobExecution("job"))
		l.AfterStep(context.Background(), test.NewStepExecution("step"))
	})
}
