package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
)

// Module contributes the logging listeners to the job and step listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingJobListener, fx.ResultTags(port.JobListenerGroupTag))),
	fx.Provide(fx.Annotate(NewLoggingStepListener, fx.ResultTags(port.StepListenerGroupTag))),
)
