package runner

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
)

// RunnerParams defines dependencies for SimpleJobRunner.
type RunnerParams struct {
	fx.In
	Pusher      MetricsPusher                 `optional:"true"`
	Incrementer port.JobParametersIncrementer `optional:"true"`
}

// NewJobRunner provides the SimpleJobRunner.
func NewJobRunner(p RunnerParams) *SimpleJobRunner {
	return NewSimpleJobRunner(p.Pusher).WithIncrementer(p.Incrementer)
}

// Module provides the job runner.
var Module = fx.Options(
	fx.Provide(NewJobRunner),
)
