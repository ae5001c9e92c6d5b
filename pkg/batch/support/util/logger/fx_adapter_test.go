package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxevent"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

func TestFxLoggerAdapter_LogEvent(t *testing.T) {
	adapter := logger.NewFxLoggerAdapter()
	assert.NotPanics(t, func() {
		adapter.LogEvent(&fxevent.OnStartExecuting{FunctionName: "main.run.func1", CallerName: "main"})
		adapter.LogEvent(&fxevent.Provided{ConstructorName: "New", OutputTypeNames: []string{"*T"}})
		adapter.LogEvent(&fxevent.Started{})
	})
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { logger.SetLogLevel("INFO") })

	logger.SetLogLevel("DEBUG")
	assert.True(t, logger.IsDebugEnabled())

	logger.SetLogLevel("warn")
	assert.False(t, logger.IsDebugEnabled())

	logger.SetLogLevel("bogus")
	assert.False(t, logger.IsDebugEnabled())
}
