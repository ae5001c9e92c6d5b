package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// embeddedConfig is the base configuration, overridden by .env and CROPWX_* variables.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
