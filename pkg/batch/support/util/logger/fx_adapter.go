package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxLoggerAdapter routes fx lifecycle events to the package logger.
// Container wiring is logged at debug; failures always surface as errors.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

func (l *FxLoggerAdapter) log() *zap.SugaredLogger {
	return current().With("component", "fx")
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.log().Debugw("OnStart hook executing", "callee", shortFunctionName(e.FunctionName), "caller", e.CallerName)
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.log().Errorw("OnStart hook failed", "callee", shortFunctionName(e.FunctionName), "error", e.Err)
		} else {
			l.log().Debugw("OnStart hook executed", "callee", shortFunctionName(e.FunctionName), "runtime", e.Runtime)
		}
	case *fxevent.OnStopExecuting:
		l.log().Debugw("OnStop hook executing", "callee", shortFunctionName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.log().Errorw("OnStop hook failed", "callee", shortFunctionName(e.FunctionName), "error", e.Err)
		} else {
			l.log().Debugw("OnStop hook executed", "callee", shortFunctionName(e.FunctionName), "runtime", e.Runtime)
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			l.log().Errorw("supply failed", "type", e.TypeName, "error", e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.log().Errorw("provide failed", "constructor", e.ConstructorName, "error", e.Err)
			return
		}
		if IsDebugEnabled() {
			for _, rtype := range e.OutputTypeNames {
				l.log().Debugw("provided", "constructor", shortFunctionName(e.ConstructorName), "type", rtype)
			}
		}
	case *fxevent.Decorated:
		if e.Err != nil {
			l.log().Errorw("decorate failed", "decorator", e.DecoratorName, "error", e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.log().Errorw("invoke failed", "function", e.FunctionName, "error", e.Err, "stack", e.Trace)
		}
	case *fxevent.Stopping:
		l.log().Infow("received signal", "signal", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			l.log().Errorw("stop failed", "error", e.Err)
		}
	case *fxevent.RollingBack:
		l.log().Errorw("start failed, rolling back", "error", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.log().Errorw("rollback failed", "error", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.log().Errorw("start failed", "error", e.Err)
		} else {
			l.log().Debugw("started")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.log().Errorw("custom logger initialization failed", "error", e.Err)
		}
	}
}

// shortFunctionName strips anonymous function suffixes such as ".func1".
func shortFunctionName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
