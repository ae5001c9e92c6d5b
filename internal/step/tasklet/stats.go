package tasklet

import (
	"context"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// ContextKeyStatsWritten records the number of summary rows a stats step wrote.
const ContextKeyStatsWritten = "stats.written"

// StatsBuilder maintains the summary table.
type StatsBuilder interface {
	Build(ctx context.Context) (int64, error)
	Recompute(ctx context.Context, scope aggregate.Scope) (int64, error)
}

// StatsTasklet runs Build, or Recompute when created with NewRecomputeTasklet.
type StatsTasklet struct {
	builder   StatsBuilder
	recompute bool
	scope     aggregate.Scope
	ec        model.ExecutionContext
}

// NewBuildStatsTasklet creates a tasklet adding the summaries of groups not yet summarized.
func NewBuildStatsTasklet(builder StatsBuilder) *StatsTasklet {
	return &StatsTasklet{builder: builder, ec: model.NewExecutionContext()}
}

// NewRecomputeTasklet creates a tasklet rewriting the summaries in scope.
func NewRecomputeTasklet(builder StatsBuilder, scope aggregate.Scope) *StatsTasklet {
	return &StatsTasklet{builder: builder, recompute: true, scope: scope, ec: model.NewExecutionContext()}
}

func (t *StatsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	var (
		written int64
		err     error
	)
	if t.recompute {
		written, err = t.builder.Recompute(ctx, t.scope)
	} else {
		written, err = t.builder.Build(ctx)
	}
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.WriteCount += int(written)
	t.ec.Put(ContextKeyStatsWritten, written)
	if written == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

func (t *StatsTasklet) Close(ctx context.Context) error { return nil }

func (t *StatsTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *StatsTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

var _ port.Tasklet = (*StatsTasklet)(nil)
