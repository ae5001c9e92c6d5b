package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
)

func asJobListener(l *Listener) port.JobExecutionListener   { return l }
func asStepListener(l *Listener) port.StepExecutionListener { return l }

// Module provides one Listener and contributes it to both listener groups.
var Module = fx.Options(
	fx.Provide(NewListener),
	fx.Provide(fx.Annotate(asJobListener, fx.ResultTags(port.JobListenerGroupTag))),
	fx.Provide(fx.Annotate(asStepListener, fx.ResultTags(port.StepListenerGroupTag))),
)
